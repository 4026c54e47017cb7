// Package tesseract provides a gosseract-backed OCR engine. It is kept
// in its own package so the cgo dependency stays out of builds that do
// not opt in; the engine itself is only compiled when cgo is enabled.
package tesseract
