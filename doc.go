// Package silt is the Composition Root for the Silt library.
//
// It connects the core write-planning logic (Domain Layer) with the storage
// adapters (Persistence Layer) using the Hexagonal Architecture pattern.
//
// Philosophy:
//
// Silt is a selective-persistence engine for document stores. Entities are
// plain Go structs; the engine assigns identity, maintains creation and
// modification stamps, and plans writes so that partial saves never clobber
// fields the caller wants preserved. The core is storage-agnostic: MongoDB,
// a plain directory tree and an in-memory map ship as adapters, and anything
// implementing core.Store plugs in.
//
// Features:
//
//   - **Hexagonal Architecture**: Core domain is isolated from driver details.
//   - **Identity Contract**: Unsaved entities get a unique ID and creation stamp on first save.
//   - **Selective Persistence**: Struct tags or explicit projections decide which fields a partial save may overwrite.
//   - **Monotonic Stamps**: Every successful save advances the modification stamp server-side.
//   - **Typed Access**: Generic wrapper (`NewCollection[T]`) for type-safe reads and writes.
//   - **Adapters**: MongoDB for production, directory-of-JSON for development, memory for tests.
//
// Usage:
//
//	// Open an engine with functional options
//	engine, err := silt.Open(ctx, "./data",
//		silt.WithLogger(logger),
//	)
//
//	// Save an entity
//	_, err = engine.Save(ctx, &book)
package silt
