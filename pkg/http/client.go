package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// LambdaInvoker is the subset of the Lambda API the client needs
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Client wraps the standard http.Client and adds Lambda invocation support
type Client struct {
	*http.Client
	invoker LambdaInvoker
}

// NewClient creates a new HTTP client with Lambda support
func NewClient() (*Client, error) {
	return NewClientWithHTTPClient(http.DefaultClient)
}

// NewClientWithHTTPClient creates a new client with a custom HTTP client
func NewClientWithHTTPClient(httpClient *http.Client) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Client{
		Client:  httpClient,
		invoker: lambda.NewFromConfig(cfg),
	}, nil
}

// NewClientWithInvoker creates a client with an explicit Lambda invoker
func NewClientWithInvoker(httpClient *http.Client, invoker LambdaInvoker) *Client {
	return &Client{
		Client:  httpClient,
		invoker: invoker,
	}
}

// Do performs the request, routing to Lambda or HTTP based on the URL scheme
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "lambda" {
		return c.doLambda(req)
	}
	return c.Client.Do(req)
}

// Get performs a GET request
func (c *Client) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// doLambda handles Lambda invocations
func (c *Client) doLambda(req *http.Request) (*http.Response, error) {
	functionName := req.URL.Host
	if functionName == "" {
		return nil, fmt.Errorf("lambda URL missing function name")
	}
	if c.invoker == nil {
		return nil, fmt.Errorf("lambda invocation not configured")
	}

	event, err := httpRequestToLambdaEvent(req)
	if err != nil {
		return nil, fmt.Errorf("converting request to Lambda event: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshaling Lambda event: %w", err)
	}

	input := &lambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	}

	output, err := c.invoker.Invoke(req.Context(), input)
	if err != nil {
		return nil, fmt.Errorf("invoking Lambda function: %w", err)
	}

	if output.FunctionError != nil {
		return nil, fmt.Errorf("Lambda function error: %s", *output.FunctionError)
	}

	resp, err := lambdaResponseToHTTP(output.Payload)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

// httpRequestToLambdaEvent converts an http.Request to an API Gateway v2 HTTP proxy event
func httpRequestToLambdaEvent(req *http.Request) (*events.APIGatewayV2HTTPRequest, error) {
	var bodyString string
	var isBase64Encoded bool

	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		if utf8.Valid(bodyBytes) {
			bodyString = string(bodyBytes)
		} else {
			bodyString = base64.StdEncoding.EncodeToString(bodyBytes)
			isBase64Encoded = true
		}
	}

	headers := make(map[string]string)
	for key, values := range req.Header {
		headers[key] = strings.Join(values, ",")
	}
	if req.Host != "" {
		headers["Host"] = req.Host
	}

	var cookies []string
	for _, cookie := range req.Cookies() {
		cookies = append(cookies, cookie.String())
	}

	queryParams := make(map[string]string)
	for key, values := range req.URL.Query() {
		queryParams[key] = strings.Join(values, ",")
	}

	now := time.Now()
	userAgent := req.Header.Get("User-Agent")
	if userAgent == "" {
		userAgent = "featcheck"
	}

	path := req.URL.Path
	if path == "" {
		path = "/"
	}

	event := &events.APIGatewayV2HTTPRequest{
		Version:               "2.0",
		RouteKey:              "$default",
		RawPath:               path,
		RawQueryString:        req.URL.RawQuery,
		Cookies:               cookies,
		Headers:               headers,
		QueryStringParameters: queryParams,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			AccountID:    "anonymous",
			APIID:        "featcheck",
			DomainName:   req.URL.Host,
			DomainPrefix: req.URL.Host,
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    req.Method,
				Path:      path,
				Protocol:  "HTTP/1.1",
				SourceIP:  "127.0.0.1",
				UserAgent: userAgent,
			},
			RequestID: fmt.Sprintf("featcheck-%d", now.UnixNano()),
			RouteKey:  "$default",
			Stage:     "$default",
			Time:      now.Format("02/Jan/2006:15:04:05 -0700"),
			TimeEpoch: now.UnixMilli(),
		},
		Body:            bodyString,
		IsBase64Encoded: isBase64Encoded,
	}

	return event, nil
}

// lambdaResponseToHTTP converts a Lambda response to an http.Response
func lambdaResponseToHTTP(payload []byte) (*http.Response, error) {
	var lambdaResp events.APIGatewayV2HTTPResponse

	if err := json.Unmarshal(payload, &lambdaResp); err != nil {
		return nil, fmt.Errorf("parsing Lambda response: %w", err)
	}

	// A handler that omits statusCode is treated as 200 by API Gateway
	statusCode := lambdaResp.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	resp := &http.Response{
		StatusCode: statusCode,
		Status:     fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		Header:     make(http.Header),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
	}

	for key, value := range lambdaResp.Headers {
		resp.Header.Set(key, value)
	}
	for key, values := range lambdaResp.MultiValueHeaders {
		for _, value := range values {
			resp.Header.Add(key, value)
		}
	}
	for _, cookie := range lambdaResp.Cookies {
		resp.Header.Add("Set-Cookie", cookie)
	}

	bodyBytes := []byte(lambdaResp.Body)
	if lambdaResp.IsBase64Encoded && lambdaResp.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(lambdaResp.Body)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 Lambda body: %w", err)
		}
		bodyBytes = decoded
	}

	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	resp.ContentLength = int64(len(bodyBytes))

	return resp, nil
}
