// Package unihelp embeds the help-desk evidence pipeline in-process.
//
// The pipeline answers questions strictly from indexed documents: it chunks
// and embeds uploads, retrieves the nearest chunks for a question, gates on a
// confidence score and only then asks a language model to answer from the
// cited evidence. When the corpus does not cover a question the answer is a
// canned refusal in the requested language, never a guess.
//
// # Pipeline building blocks
//
//	client, _ := unihelp.New(ctx, unihelp.WithMemoryIndex(), unihelp.WithEmbedder(emb))
//	chunks := client.Chunk(text, "guide.pdf", nil)
//	res, _ := client.RetrieveAndScore(ctx, "Quand ouvrent les inscriptions ?", 5, 0.35)
//	p := client.BuildPrompt(question, res.Evidence, unihelp.French)
//	v := unihelp.ClassifyAnswer(modelOutput)
//
// # End to end
//
//	client, _ := unihelp.New(ctx,
//	    unihelp.WithRedis("localhost:6379", ""),
//	    unihelp.WithEmbedder(emb),
//	    unihelp.WithGenerator(gen),
//	)
//	_, _ = client.Ingest(ctx, "guide.pdf", pdfBytes)
//	ans, _ := client.Ask(ctx, unihelp.AskRequest{Question: "Où déposer mon dossier ?"})
package unihelp
