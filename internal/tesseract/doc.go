// Package tesseract adapts the Tesseract engine, through gosseract, to the
// recognizer and block detector interfaces used by the OCR pipeline.
//
// # Language Codes
//
// The pipeline speaks BCP-47 ("en-US", "ru-RU"). Tesseract wants its own
// traineddata names ("eng", "rus", "chi_sim"). LanguageCodes performs the
// mapping; tags without a known traineddata name are passed through the
// ISO 639-3 code of their base language.
//
// Tesseract cannot detect a language by itself, so an auto-detect request is
// served by loading every configured candidate language at once
// ("eng+rus"), which lets the engine pick per word.
//
// # Concurrency
//
// A gosseract client is not safe for concurrent use. Every call creates its
// own client; the number of clients alive at once is bounded by
// Options.MaxClients.
//
// # Requirements
//
// Tesseract and Leptonica must be installed with the traineddata of every
// language in use. Options.TessdataPrefix (or TESSDATA_PREFIX) selects a
// non-default data directory.
package tesseract
