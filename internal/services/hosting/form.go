package hosting

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

func subtitleForm(language, subtitleText string) (io.Reader, string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", fmt.Sprintf("captions.%s.srt", language))
	if err != nil {
		return nil, "", fmt.Errorf("hosting upload subtitle: build form: %w", err)
	}
	if _, err := io.WriteString(part, subtitleText); err != nil {
		return nil, "", fmt.Errorf("hosting upload subtitle: write subtitle: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("hosting upload subtitle: close form: %w", err)
	}
	return &body, form.FormDataContentType(), nil
}
