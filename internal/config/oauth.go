// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package config

import (
	"context"
	"net/http"
	"os"

	"golang.org/x/oauth2/clientcredentials"
)

// OAuthHTTPClient builds an OAuth2 client-credentials-authenticated HTTP
// client from the HOSTTRACE_OAUTH_* environment variables, for use with
// FetchRemoteFilter when a fleet's shared filter document lives behind
// auth. Only the one flow this repo needs is implemented: machine-to-machine
// client credentials, no interactive consent.
//
// Returns http.DefaultClient, unmodified, when the client-credentials
// environment variables are not set: remote filter fetch against a public
// URL works the same as any other HTTP GET.
func OAuthHTTPClient(ctx context.Context) *http.Client {
	clientID := os.Getenv("HOSTTRACE_OAUTH_CLIENT_ID")
	clientSecret := os.Getenv("HOSTTRACE_OAUTH_CLIENT_SECRET")
	tokenURL := os.Getenv("HOSTTRACE_OAUTH_TOKEN_URL")
	if clientID == "" || clientSecret == "" || tokenURL == "" {
		return http.DefaultClient
	}
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return cc.Client(ctx)
}
