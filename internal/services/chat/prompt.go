package chat

import "fmt"

// CorrectionSystemPrompt builds the system prompt for grammar correction in
// the given language. The service must only fix spelling and grammar inside
// cue text, keeping numbering and timestamps untouched.
func CorrectionSystemPrompt(languageName string) string {
	return fmt.Sprintf(`You are a professional %s copy editor. Correct the subtitle text while preserving the SubRip (SRT) structure exactly.

Rules:
1. Fix only spelling and grammar mistakes in the cue text.
2. DO NOT modify any of these elements:
   - Cue numbers (e.g. "1", "2", "3")
   - Timestamps (e.g. "00:00:01,000 --> 00:00:05,000")
   - Line break positions
3. Preserve the original meaning and word choice wherever possible.
4. Keep technical and scientific terms accurate.
5. If a cue needs no correction, return it unchanged.

Return the full SRT text and nothing else.`, languageName)
}

// TranslationSystemPrompt builds the system prompt for translating cue text
// between two languages while keeping the SRT structure frozen.
func TranslationSystemPrompt(sourceName, targetName string) string {
	return fmt.Sprintf(`You are a professional translator from %s to %s.

Rules:
1. Translate ONLY the text content between timestamps from %s to %s.
2. DO NOT modify any of these elements:
   - Cue numbers (e.g. "1", "2", "3")
   - Timestamps (e.g. "00:00:01,000 --> 00:00:05,000")
   - Line break positions
3. Maintain technical and scientific terms accuracy.
4. Keep numbers and special characters exactly as they appear.
5. Each cue block must keep this exact format:

[number]
[timestamp] --> [timestamp]
[translated text]
[empty line]

Return the full SRT text and nothing else.`, sourceName, targetName, sourceName, targetName)
}
