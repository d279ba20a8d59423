package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Opener reads an artifact from a source URI.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// SourceOpener reads local paths directly and gs://bucket/object URIs through
// Google Cloud Storage.
type SourceOpener struct {
	// NewStorageClient overrides client construction; nil builds a client from
	// ClientOptions and default credentials.
	NewStorageClient func(ctx context.Context) (*storage.Client, error)
	ClientOptions    []option.ClientOption
}

// GCSClientOptions points the storage client at endpoint (an emulator or a
// private gateway) without credentials. An empty endpoint yields no options.
func GCSClientOptions(endpoint string) []option.ClientOption {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	return []option.ClientOption{
		option.WithEndpoint(endpoint),
		option.WithoutAuthentication(),
	}
}

func (o SourceOpener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("artifact source is empty")
	}
	if bucket, object, ok := parseGCSURI(uri); ok {
		return o.openGCS(ctx, bucket, object)
	}
	return os.Open(strings.TrimPrefix(uri, "file://"))
}

func (o SourceOpener) openGCS(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	newClient := o.NewStorageClient
	if newClient == nil {
		newClient = func(ctx context.Context) (*storage.Client, error) {
			return storage.NewClient(ctx, o.ClientOptions...)
		}
	}
	client, err := newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	return &gcsReader{Reader: r, client: client}, nil
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func parseGCSURI(uri string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(uri, "gs://")
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}
