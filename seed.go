package models

// seedRecords is the built-in catalog used on first run, before any
// manifest has been fetched. The remote manifest takes over every
// descriptive field on the first successful refresh.
func seedRecords() []ModelRecord {
	return []ModelRecord{
		{
			FileName:    "ggml-tiny-q5_1.bin",
			DisplayName: "Whisper Tiny Q5",
			Kind:        KindSpeech,
			SizeBytes:   32 * 1024 * 1024,
			PrimaryURL:  "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny-q5_1.bin",
			MirrorURLs: []string{
				"https://hf-mirror.com/ggerganov/whisper.cpp/resolve/main/ggml-tiny-q5_1.bin",
			},
			Notes: "Fastest model, lowest accuracy. Good for slow machines.",
		},
		{
			FileName:    "ggml-base-q5_1.bin",
			DisplayName: "Whisper Base Q5",
			Kind:        KindSpeech,
			SizeBytes:   60 * 1024 * 1024,
			PrimaryURL:  "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base-q5_1.bin",
			MirrorURLs: []string{
				"https://hf-mirror.com/ggerganov/whisper.cpp/resolve/main/ggml-base-q5_1.bin",
			},
			IsDefault: true,
			Notes:     "Recommended balance of speed and accuracy.",
		},
		{
			FileName:    "ggml-small-q5_1.bin",
			DisplayName: "Whisper Small Q5",
			Kind:        KindSpeech,
			SizeBytes:   190 * 1024 * 1024,
			PrimaryURL:  "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small-q5_1.bin",
			MirrorURLs: []string{
				"https://hf-mirror.com/ggerganov/whisper.cpp/resolve/main/ggml-small-q5_1.bin",
			},
			Notes: "Better accuracy, slower transcription.",
		},
		{
			FileName:    "ggml-large-v3-turbo-q5_0.bin",
			DisplayName: "Whisper Large v3 Turbo",
			Kind:        KindSpeech,
			SizeBytes:   574 * 1024 * 1024,
			PrimaryURL:  "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo-q5_0.bin",
			MirrorURLs: []string{
				"https://hf-mirror.com/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo-q5_0.bin",
			},
			Notes: "Best accuracy. Needs a fast CPU or GPU.",
		},
		{
			FileName:    "qwen2.5-0.5b-instruct-q5_k_m.gguf",
			DisplayName: "Qwen 2.5 0.5B Instruct",
			Kind:        KindLanguage,
			SizeBytes:   420 * 1024 * 1024,
			PrimaryURL:  "https://huggingface.co/Qwen/Qwen2.5-0.5B-Instruct-GGUF/resolve/main/qwen2.5-0.5b-instruct-q5_k_m.gguf",
			MirrorURLs: []string{
				"https://hf-mirror.com/Qwen/Qwen2.5-0.5B-Instruct-GGUF/resolve/main/qwen2.5-0.5b-instruct-q5_k_m.gguf",
			},
			IsDefault: true,
			Notes:     "Lightweight text refinement model.",
		},
		{
			FileName:    "gemma-2-2b-it-Q4_K_M.gguf",
			DisplayName: "Gemma 2 2B Instruct",
			Kind:        KindLanguage,
			SizeBytes:   1710 * 1024 * 1024,
			PrimaryURL:  "https://huggingface.co/bartowski/gemma-2-2b-it-GGUF/resolve/main/gemma-2-2b-it-Q4_K_M.gguf",
			MirrorURLs: []string{
				"https://hf-mirror.com/bartowski/gemma-2-2b-it-GGUF/resolve/main/gemma-2-2b-it-Q4_K_M.gguf",
			},
			Notes: "Higher quality refinement, larger download.",
		},
	}
}
