package client

import (
	"context"

	"github.com/menta2k/facemask/pkg/types"
)

// VisionClient is a vision-model backend able to locate faces in an image
type VisionClient interface {
	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	DetectFaces(ctx context.Context, model, prompt, imgB64 string) (*types.FaceAnalysis, error)
}
