// Package server exposes the merge pipeline over HTTP.
//
// Routes:
//
//	GET    /                        upload form
//	POST   /merge                   multipart video + audio
//	POST   /merge-url               JSON {video_url, audio_url, output_format}
//	GET    /download/{filename}     merged output
//	GET    /test-files              sample media listing
//	GET    /test-file/{filename}    sample media file
//	DELETE /cleanup                 retention sweep
//	GET    /health                  liveness
//	GET    /api/status              dependency and directory checks
//	GET    /metrics                 Prometheus exposition
//
// When server.api_token is set every route except /health and /metrics
// requires "Authorization: Bearer <token>".
package server
