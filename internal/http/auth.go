package http

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/rs/zerolog"
)

// SigV4Signer signs requests with AWS Signature Version 4 using the default
// credential chain. The AWS config is loaded once on first use.
type SigV4Signer struct {
	service string
	logger  zerolog.Logger

	once   sync.Once
	cfg    aws.Config
	cfgErr error
}

// NewSigV4Signer creates a signer for the given AWS service name
func NewSigV4Signer(service string, logger zerolog.Logger) *SigV4Signer {
	return &SigV4Signer{
		service: service,
		logger:  logger.With().Str("component", "auth").Logger(),
	}
}

func (s *SigV4Signer) loadConfig(ctx context.Context) (aws.Config, error) {
	s.once.Do(func() {
		s.cfg, s.cfgErr = config.LoadDefaultConfig(ctx)
	})
	return s.cfg, s.cfgErr
}

// Sign applies the SigV4 headers to req
func (s *SigV4Signer) Sign(ctx context.Context, req *http.Request) error {
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration").
			WithContext("suggestion", "ensure AWS credentials are configured")
	}

	region := cfg.Region
	if region == "" {
		return errors.New(errors.ErrorTypeConfig, "AWS region not configured").
			WithContext("suggestion", "set AWS_REGION or AWS_DEFAULT_REGION environment variable")
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to retrieve AWS credentials").
			WithContext("suggestion", "check AWS credential configuration")
	}

	payloadHash, err := hashPayload(req)
	if err != nil {
		return err
	}

	signer := v4.NewSigner()
	if err := signer.SignHTTP(ctx, creds, req, payloadHash, s.service, region, time.Now()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to sign request with SigV4").
			WithContext("service", s.service).
			WithContext("region", region)
	}

	s.logger.Debug().
		Str("service", s.service).
		Str("region", region).
		Msg("SigV4 signature applied")

	return nil
}

// hashPayload returns the hex SHA256 of the request body, restoring the body afterwards
func hashPayload(req *http.Request) (string, error) {
	if req.Body == nil {
		hash := sha256.Sum256([]byte{})
		return fmt.Sprintf("%x", hash), nil
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to read request body for signing")
	}
	req.Body = io.NopCloser(strings.NewReader(string(bodyBytes)))

	hash := sha256.Sum256(bodyBytes)
	return fmt.Sprintf("%x", hash), nil
}
