package db

// Timestamp layout stored in the journal; matches SQLite's datetime().
const sqlTimeLayout = "2006-01-02 15:04:05"
