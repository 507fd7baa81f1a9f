/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package httpcli provides the outbound HTTP client used by script isolates'
// http module and by the CLI's management-API client.
//
// Basic usage:
//
//	import "github.com/nabbar/abel/httpcli"
//
//	req := httpcli.New(nil)
//	_ = req.Endpoint("https://api.example.com")
//	resp, err := req.Do(context.Background())
package httpcli

import (
	"net/http"
	"time"
)

const (
	// ClientTimeout5Sec is a default timeout constant of 5 seconds for HTTP client operations.
	ClientTimeout5Sec = 5 * time.Second // nolint
)

// FctHttpClient is a function type that returns an HTTP client.
// This type is used for dependency injection and testing purposes.
type FctHttpClient func() *http.Client

// FctHttpClientSrv is a function type that returns an HTTP client configured for a specific server.
// The servername parameter can be used to select different client configurations.
type FctHttpClientSrv func(servername string) *http.Client

// HttpClient defines the minimal interface for HTTP operations.
// This interface is compatible with *http.Client and can be used for testing with mock clients.
type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// GetClient returns a plain *http.Client with the package's default transport.
// Callers needing TLS or forced-IP dialing should build a Request via New and
// call UseClientPackage instead of relying on this default.
func GetClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout5Sec,
	}
}
