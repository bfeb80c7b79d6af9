// Package middleware composes the request-admission stages around tool
// dispatch in a fixed order: timeout guard, bulkhead, response cache,
// rate limiter, then the tool handler itself.
//
// The ordering is deliberate. Cache hits must not consume rate-limit
// tokens, so the limiter sits inside the cache's compute path. The
// bulkhead sits outside the cache so an overloaded server sheds load
// before touching shared state. The timeout guard is outermost so its
// deadline covers every stage, including time spent waiting for a token.
package middleware
