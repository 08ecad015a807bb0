package domain

// KeyPrefix namespaces every key the assistant writes to the shared store.
const KeyPrefix = "unihelp:"
