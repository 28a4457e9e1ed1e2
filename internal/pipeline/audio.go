package pipeline

import (
	"context"
	"fmt"
	"strings"

	"subforge/internal/services"
	"subforge/internal/services/hosting"
)

type audioSource struct {
	url    string
	detail string
}

// locateAudio picks the cheapest fetchable audio for an item. A downloadable
// original file with an aac track is preferred; otherwise the first audio
// rendition of an HLS manifest is used. Items with neither are unprocessable.
func (p *Pipeline) locateAudio(ctx context.Context, itemID string, files []hosting.File) (audioSource, error) {
	for _, f := range files {
		if !f.Downloadable || f.EncryptionType != "original" || !strings.EqualFold(f.AudioCodec, "aac") {
			continue
		}
		url, err := p.hosting.DownloadURL(ctx, itemID, f.ID)
		if err != nil {
			continue
		}
		return audioSource{url: url, detail: "original file " + f.Name}, nil
	}
	for _, f := range files {
		if f.HLS == nil {
			continue
		}
		for _, s := range f.HLS.Params.Streams {
			if strings.EqualFold(s.ContentType, "audio") && s.URL != "" {
				return audioSource{url: s.URL, detail: "hls audio stream"}, nil
			}
		}
	}
	return audioSource{}, services.Wrap(services.ErrNotFound, "pipeline", "locate audio",
		fmt.Sprintf("no downloadable audio for %s", itemID), nil)
}
