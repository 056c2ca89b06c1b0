// Package store is the fleet data warehouse layer. It holds the vehicle,
// health-sample, part, order, rental, and appointment records the assistant's
// tools query, backed by Postgres in production and SQLite in tests.
//
// JSON field names follow the warehouse column naming (Vehicle_ID,
// Model_Year) because tool payloads surface these rows to the model verbatim.
package store
