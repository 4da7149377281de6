/*
Package wdns implements a wire-level DNS client: a byte-exact codec for
DNS messages and a resolution engine that queries a list of servers
over plain UDP and TCP. There are three fundamental kinds of objects in
this library.

Messages

Msg, Question and Record model a DNS message with its header flags and
the four sections. Record data is a tagged variant per record type;
types without a registered codec round-trip as opaque bytes. Pack and
Unpack convert between the structured form and wire bytes, handling
name compression, compression pointers and the historical binary EDNS
label form.

Clients

Client resolves queries against an ordered list of servers. For each
query, servers are tried strictly in order, each attempt getting a fair
share of the remaining time budget. UDP is tried first when the query
fits into a datagram; truncated responses are retried over TCP against
the same server. TCP responses may span multiple messages, as in zone
transfers, and are combined before being returned. Every blocking call
honors context cancellation.

Decorators

Resolvers can be wrapped to add behavior without touching the engine.
QueryLog writes a log line per query to a file or syslog server and
passes queries through unmodified.
*/
package wdns
