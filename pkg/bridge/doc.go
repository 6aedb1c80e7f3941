/*
Package bridge exposes the blueberry method channel over HTTP.

Methods are invoked with

	POST /api/1/methods/{method}

where the request body is a JSON object holding the method's arguments. Successful calls return
{"result": ...}; failures return {"error": code, "error_description": message}, where code is one
of the protocol error codes.

Scan results are streamed to websocket clients connected to

	GET /api/1/events

as {"method": "scanResult", "arguments": {"name": ..., "address": ...}} messages.

When the server is created with a secret, every request must carry an HS256-signed JWT with the
audience "blueberry", either in an "Authorization: Bearer" header or a "token" query parameter.
*/
package bridge
