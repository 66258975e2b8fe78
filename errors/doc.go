// Package errors defines the error kinds raised while processing audio records.
//
// Every failure is an *AppError carrying a machine-readable code. Per-record
// codes (staging, transcription, transcode, missing audio, emit) are caught by
// the coordinator and scoped to the failing record. CONFIGURATION_ERROR is the
// only fatal code and is raised once, while the engines are initialized.
package errors
