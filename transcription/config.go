package transcription

import (
	"github.com/kbukum/audiotranscriber/validation"
)

const (
	// DefaultModel is the Hugging Face repo of the default mlx model.
	DefaultModel = "mlx-community/whisper-large-v3-turbo"
	// DefaultLanguage is the default spoken language.
	DefaultLanguage = "ja"
	// DefaultInitialPrompt primes the decoder for Japanese business meetings.
	DefaultInitialPrompt = "これは日本語のビジネス会議や技術的な議論の文字起こしです。日本語特有の言い回し、敬語表現、専門用語、および固有名詞を正確に認識してください。あいまい表現や言いよどみは適切に処理し、カタカナ語や外来語も正確に変換してください。日本語として解釈できなかった場合は音の通りをカタカナで出力してください。「えー」「あの」などのフィラーは必要に応じて含めてください。"
)

// Config holds per-call decoding parameters. It is treated as immutable and
// shared between concurrent calls.
type Config struct {
	ModelID                 string    `mapstructure:"model" validate:"required"`
	Language                string    `mapstructure:"language" validate:"required"`
	InitialPrompt           string    `mapstructure:"initial_prompt"`
	Temperatures            []float64 `mapstructure:"temperatures" validate:"required,min=1,ascending,dive,min=0,max=1"`
	ConditionOnPreviousText bool      `mapstructure:"condition_on_previous_text"`
	FP16                    bool      `mapstructure:"fp16"`
}

// DefaultConfig returns the production decoding defaults.
func DefaultConfig() Config {
	return Config{
		ModelID:                 DefaultModel,
		Language:                DefaultLanguage,
		InitialPrompt:           DefaultInitialPrompt,
		Temperatures:            []float64{0.0, 0.2, 0.4, 0.6, 0.8},
		ConditionOnPreviousText: true,
		FP16:                    true,
	}
}

// Validate checks the decoding parameters. Failures are CONFIGURATION_ERROR.
func (c Config) Validate() error {
	return validation.Config(c)
}
