// Package httpx is a small HTTP/1.1 server engine written directly
// against net.Conn, without net/http.
//
// Highlights
//   - Conn: a buffered duplex channel whose read and write halves lock
//     independently.
//   - ReadRequest: request line and header parsing; Content-Length is
//     recorded in the request's Extensions.
//   - BodyReader: bounded 1 KiB reads over the declared body, drained by
//     the server when the handler leaves bytes unread.
//   - Response: Content-Length or chunked framing, file streaming.
//   - Server: keep-alive loop with idle timeout and per-connection request
//     limit, error-to-status mapping, graceful shutdown, logging/metrics
//     hooks.
//
// Quick start:
//
//	s := &httpx.Server{Addr: ":8080"}
//	s.Handler = httpx.HandlerFunc(func(r *httpx.Request, body *httpx.BodyReader) *httpx.Response {
//	    b, err := body.ReadAll()
//	    if err != nil {
//	        return httpx.NewResponse().Status(400).BodyString(err.Error())
//	    }
//	    return httpx.NewResponse().Body(b)
//	})
//	if err := s.ListenAndServe(); err != nil { log.Fatal(err) }
//
// Routing is left to the Handler.
package httpx
