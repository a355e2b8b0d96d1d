// Package serializer builds the upload documents sent to the nutrition
// server from meal log lines.
//
// A Document has a fixed memory budget. Once the budget is spent further
// appends are silently dropped, the way a fixed-pool JSON writer behaves,
// so the only way to notice exhaustion is that Footprint stops growing.
// Builder checkpoints the document after every complete meal and rolls
// back to the last checkpoint as soon as an append is dropped, which
// guarantees a document never carries a partially written meal.
package serializer
