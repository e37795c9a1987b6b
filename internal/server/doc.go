// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the assistant over HTTP for the browser UI.
//
// # Endpoints
//
//   - POST /api/ask     - Ask a question within a session
//   - GET  /api/models  - List the model registry
//   - GET  /health      - Health check
//   - GET  /stats       - Usage statistics
//
// # Middleware
//
//   - Panic recovery
//   - Request logging (log/slog)
//   - Security headers (X-Content-Type-Options, X-Frame-Options, etc.)
//   - CORS for the configured UI origins
//   - Per-client-IP token-bucket rate limiting on /api routes
//   - Optional bearer token authentication on /api routes
//
// # Usage
//
//	srv := server.New(svc, store, server.Options{Addr: "127.0.0.1:8787"})
//	if err := srv.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
