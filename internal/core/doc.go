// Package core provides the business logic of the directory.
//
// It is independent of any UI or transport layer and is used by the web
// server, the CLI and tests alike.
//
// # Dataset Registry
//
// Datasets are registered at init time using [Register]. Each
// [DatasetDefinition] names its source file, whether it can be edited and
// how it is searched and presented:
//
//	core.Register(DatasetDefinition{
//	    Key:      "institutions",
//	    Label:    "Institutions",
//	    Source:   "institutions.csv",
//	    Editable: true,
//	    FormFields: []FormField{
//	        {Name: "id", Required: true},
//	        {Name: "name", Required: true},
//	    },
//	})
//
// # Catalogs
//
// The [Service] serves each dataset through a [Catalog]. By default a
// dataset is read from its delimited source file and merged with the local
// edit overlay on every read. When the postgres data backend is selected,
// datasets marked Remote are read from and written to the database
// instead and have no overlay.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference; see error_messages.go.
//
// # Audit Logging
//
// Every successful mutation is recorded in a bounded in-memory [Journal]
// and logged.
package core
