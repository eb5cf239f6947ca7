package entities

// Entity marks domain values that leave the process: lifecycle events on
// Kafka, journal entries in badger, off-chain documents. It is the type
// constraint of the message mappers. Serialized types embed it as `json:"-"`.
type Entity interface{}
