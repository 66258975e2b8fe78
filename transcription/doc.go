// Package transcription is the port to speech-to-text engines.
//
// An engine is opened once at startup and the handle is passed to whoever
// needs it; there is no package-level engine state.
//
// # Engines
//
//   - mlx: runs mlx_whisper inside a Python virtualenv as a subprocess
//   - whisper_http: posts audio to a faster-whisper HTTP sidecar
//
// # Usage
//
//	engine, err := transcription.Open(ctx, transcription.EngineConfig{
//	    Engine:         transcription.EngineMLX,
//	    PythonVenvPath: "./myenv",
//	})
//	if err != nil {
//	    return err // CONFIGURATION_ERROR
//	}
//	result, err := engine.Transcribe(ctx, "/tmp/audio.wav", transcription.DefaultConfig())
package transcription
