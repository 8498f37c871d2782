// Package seed bulk-loads rows into tables.
//
// Seed inserts rows independently: a row the database rejects is logged and
// skipped, and the count of successful inserts is returned. Fixtures are YAML
// documents mapping table names to row lists:
//
//	users:
//	  - name: Ada
//	    email: ada@example.com
//	  - name: Grace
//	    email: grace@example.com
//	components:
//	  - slug: button
//	    category: ui
package seed
