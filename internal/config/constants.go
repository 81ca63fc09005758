package config

// DefaultDatabasePath is the default path for the bibliography database.
const DefaultDatabasePath = "./bibman.db"
