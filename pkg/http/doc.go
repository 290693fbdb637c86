// Package http provides an HTTP client that can also reach an implementation
// under test deployed as an AWS Lambda function behind API Gateway.
//
// The Lambda URL format:
//
//	lambda://<function-name>/<path>?<query-params>
//
// Examples:
//
//	lambda://features-api/collections
//	lambda://features-api/collections/buildings/items?limit=10
//
// For lambda:// URLs the client converts the request to an API Gateway v2
// proxy event, invokes the function synchronously and converts the proxy
// response back into an *http.Response. Every other scheme goes through the
// wrapped *http.Client unchanged.
package http
