package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"zipstream/internal/zipengine"
)

// getObjectAPI is the slice of *s3.Client that S3Store depends on, narrowed
// so tests can supply a fake without standing up a real S3 endpoint.
type getObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store fetches object byte ranges from S3, retrying retryable failures
// with exponential backoff and jitter, and resuming a failed read from the
// next byte it hasn't yet delivered rather than restarting the whole
// range.
type S3Store struct {
	client     getObjectAPI
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleepFn    func(context.Context, time.Duration) error
}

// Option customizes an S3Store.
type Option func(*S3Store)

// WithMaxRetries overrides the default number of retry attempts per range
// fetch.
func WithMaxRetries(n int) Option {
	return func(s *S3Store) { s.maxRetries = n }
}

// WithBackoff overrides the base and maximum delay used between retries.
func WithBackoff(base, max time.Duration) Option {
	return func(s *S3Store) { s.baseDelay = base; s.maxDelay = max }
}

// NewS3Store builds a Source backed by client.
func NewS3Store(client *s3.Client, opts ...Option) *S3Store {
	return newS3Store(client, opts...)
}

func newS3Store(client getObjectAPI, opts ...Option) *S3Store {
	s := &S3Store{
		client:     client,
		maxRetries: 5,
		baseDelay:  200 * time.Millisecond,
		maxDelay:   10 * time.Second,
		sleepFn:    sleepWithContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchRange implements Source.
func (s *S3Store) FetchRange(ctx context.Context, key string, start, end uint64) (io.ReadCloser, error) {
	if end < start {
		return nil, fmt.Errorf("blobstore: end %d before start %d", end, start)
	}
	bucket, objectKey, err := parseS3URI(key)
	if err != nil {
		return nil, err
	}
	if end == start {
		return io.NopCloser(strings.NewReader("")), nil
	}
	return &resumableReader{
		ctx:    ctx,
		store:  s,
		bucket: bucket,
		key:    objectKey,
		start:  start,
		end:    end,
		cursor: start,
	}, nil
}

// parseS3URI splits a "s3://bucket/key/with/slashes" source string.
func parseS3URI(source string) (bucket, key string, err error) {
	u, err := url.Parse(source)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrKeyInvalid, source)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("%w: %q has no object key", ErrKeyInvalid, source)
	}
	return u.Host, key, nil
}

// resumableReader is an io.ReadCloser over one S3 object's byte range. On a
// retryable mid-stream failure it reopens a fresh GetObject request
// starting at cursor, the offset of the next byte it hasn't yet delivered
// to the caller, instead of restarting the fetch from start.
type resumableReader struct {
	ctx    context.Context
	store  *S3Store
	bucket string
	key    string
	start  uint64
	end    uint64
	cursor uint64

	body     io.ReadCloser
	attempts int
}

func (r *resumableReader) Read(p []byte) (int, error) {
	for {
		if r.cursor >= r.end {
			return 0, io.EOF
		}
		if r.body == nil {
			if err := r.open(); err != nil {
				return 0, err
			}
		}

		n, err := r.body.Read(p)
		r.cursor += uint64(n)

		if err == nil {
			return n, nil
		}
		if err == io.EOF {
			_ = r.body.Close()
			r.body = nil
			if r.cursor < r.end {
				// Short read: the object ended before the requested range.
				if retryErr := r.retry(err); retryErr != nil {
					return n, retryErr
				}
				if n > 0 {
					return n, nil
				}
				continue
			}
			return n, io.EOF
		}

		_ = r.body.Close()
		r.body = nil
		if !isRetryable(err) {
			return n, fmt.Errorf("%w: %v", zipengine.ErrFetchFatal, err)
		}
		if retryErr := r.retry(err); retryErr != nil {
			return n, retryErr
		}
		if n > 0 {
			return n, nil
		}
	}
}

func (r *resumableReader) retry(cause error) error {
	r.attempts++
	if r.attempts > r.store.maxRetries {
		return fmt.Errorf("%w: exhausted %d retries: %v", zipengine.ErrFetchFatal, r.store.maxRetries, cause)
	}
	delay := backoffDelay(r.store.baseDelay, r.store.maxDelay, r.attempts)
	return r.store.sleepFn(r.ctx, delay)
}

func (r *resumableReader) open() error {
	for {
		out, err := r.store.client.GetObject(r.ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(r.key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-%d", r.cursor, r.end-1)),
		})
		if err == nil {
			r.body = out.Body
			return nil
		}
		if !isRetryable(err) {
			return fmt.Errorf("%w: %v", zipengine.ErrFetchFatal, err)
		}
		if retryErr := r.retry(err); retryErr != nil {
			return retryErr
		}
	}
}

func (r *resumableReader) Close() error {
	if r.body == nil {
		return nil
	}
	return r.body.Close()
}

// isRetryable reports whether a GetObject failure is transient and worth
// retrying: server errors, throttling, and connection-level failures. A
// missing object or access failure is fatal.
func isRetryable(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return false
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return false
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == 429 || code >= 500
	}

	// No structured status available (DNS failure, connection reset,
	// timeout): treat as transient.
	return true
}

func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	delay := base << (attempt - 1)
	if delay <= 0 || delay > max {
		delay = max
	}
	jitter := time.Duration(rand.Int63n(int64(base) + 1))
	return delay + jitter
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
