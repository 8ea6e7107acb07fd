package s3

import (
	"context"
	"net/url"

	s3pkg "github.com/aws/aws-sdk-go-v2/service/s3"
	transport "github.com/aws/smithy-go/endpoints"
)

// s3EndpointResolver pins every request to a single S3-compatible endpoint
// (e.g. MinIO or LocalStack) regardless of the region and bucket.
type s3EndpointResolver struct {
	url *url.URL
}

func (resolver *s3EndpointResolver) ResolveEndpoint(
	_ context.Context,
	_ s3pkg.EndpointParameters,
) (transport.Endpoint, error) {
	return transport.Endpoint{
		URI: *resolver.url,
	}, nil
}
