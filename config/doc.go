// Package config loads service configuration with viper.
//
// Values come from defaults, a YAML/TOML/JSON file, an optional .env file
// (godotenv) and the process environment, in that order of precedence.
// Environment variables use underscores for nesting:
//
//	AUDIO_TRANSCRIBER_TRANSCRIPTION_LANGUAGE=en -> transcription.language
package config
