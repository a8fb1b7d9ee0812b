package cartera

import (
	"context"
	"fmt"
	"image"
	"net/http"

	"github.com/disintegration/imaging"

	"github.com/tupakrantina/backoffice/pkg/httputil"
)

// LoadLogo downloads and decodes the cover logo (PNG, JPEG or GIF)
func LoadLogo(ctx context.Context, client *httputil.Client, url string) (image.Image, error) {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch logo: status %d", resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode logo: %w", err)
	}
	return img, nil
}
