// Package services implements the external music-source clients used by the resolver.
//
// # Platform Interface
//
// Every backend implements [Platform]: search by free-text query, fetch a source id into a downloadable URL
// with declared title/artist, and stream the file to disk. The resolver treats platforms interchangeably and
// walks them in the configured search order.
//
// # vkeys Implementation
//
// [VKeysClient] talks to the vkeys aggregation API (GET /v2/music/{platform}). One client is built per
// platform ("tencent", "netease"). Responses share an envelope {code, message, data}; a code other than
// 200 is a permanent platform error.
//
// # QQ Music Detail
//
// [QQMusicClient] looks up song details (album in particular) for QQ song mids and keeps them in a bounded
// TTL cache owned by the client.
//
// # Transport
//
// [APIClient] is the shared JSON transport: per-client rate limiting, bounded redirects, and a [RetryPolicy]
// applied around each request. Retryable failures are network errors, 5xx responses, and malformed JSON.
// 4xx responses are permanent.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : HTTP request failed or returned a non-2xx status
//   - [shared.ErrMalformedResponse] : body was not the expected JSON
//   - [shared.ErrPlatform] : the API envelope reported an error
//   - [shared.ErrTrackNotFound] : the platform has no playable URL for the id
package services
