// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 The Noisy Sockets Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package stubdns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/miekg/dns"

	"github.com/noisysockets/stubdns/internal/util"
)

// maxNegativeTTL bounds cached empty answer lists, per RFC 2308 §7.1.
const maxNegativeTTL = 300

var errServerGone = errors.New("server connection is no longer alive")

// Query resolves a single (name, type) question against the configured
// nameservers. qtype is a raw RFC 1035 type code; any value fits.
//
// Answers are cached per record type under the queried name, so a repeated
// query is served without network I/O until the smallest TTL of the answer
// set has passed. Records served from cache carry a nil TTL.
func (r *Resolver) Query(ctx context.Context, name string, qtype uint16) ([]Record, error) {
	conf, err := r.config(ctx)
	if err != nil {
		return nil, err
	}
	return r.queryWithConfig(ctx, conf, name, qtype)
}

func (r *Resolver) queryWithConfig(ctx context.Context, conf *Config, name string, qtype uint16) ([]Record, error) {
	// Rewrite the name for the record type being asked.
	switch qtype {
	case dns.TypePTR:
		if rev, ok := reverseName(name); ok {
			name = rev
		}
	case dns.TypeA, dns.TypeAAAA:
		var err error
		name, err = normalizeName(name)
		if err != nil {
			return nil, err
		}
	}

	log := queryLogger(name, qtype)

	key := cacheKey(name, qtype)
	value, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		// A failing cache degrades to uncached operation.
		log.WithError(err).Warn("cache lookup failed")
	} else if ok {
		answers, err := decodeAnswers(value)
		if err != nil {
			log.WithError(err).Warn("discarding malformed cache entry")
		} else {
			log.Debug("answering from cache")
			if len(answers) == 0 {
				return nil, &NoRecordError{Name: name, Type: qtype, FromCache: true}
			}
			records := make([]Record, 0, len(answers))
			for _, data := range answers {
				records = append(records, Record{Data: data, Type: qtype})
			}
			return records, nil
		}
	}

	attempts := conf.Attempts
	if attempts < 1 {
		attempts = 1
	}

	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(name), qtype)

	offset := 0
	if conf.Rotate {
		offset = int(r.rotation.Add(1)-1) % len(conf.Servers)
	}

	network := "udp"
	if conf.ForceTCP {
		network = "tcp"
	}
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		server := conf.Servers[(offset+attempt)%len(conf.Servers)]
		uri := serverURI(network, server)

		s, err := r.acquireServer(ctx, uri)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		// Fresh transaction ID per try so a late reply to an earlier try
		// cannot be mistaken for this one.
		req.Id = dns.Id()

		reply, err := s.ask(ctx, req, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).WithField("server", uri).Debug("attempt failed")
			lastErr = err
			continue
		}

		if !reply.Response {
			return nil, &ResolutionError{Msg: "server returned a non-response message", Rcode: -1}
		}

		if reply.Rcode != dns.RcodeSuccess {
			return nil, &ResolutionError{
				Msg:   fmt.Sprintf("server responded with error code %d", reply.Rcode),
				Rcode: reply.Rcode,
			}
		}

		if reply.Truncated {
			if network == "udp" {
				// Upgrade to TCP against the same nameserver. The truncated
				// reply does not count against the attempt budget.
				log.WithField("server", uri).Debug("truncated response, retrying over tcp")
				network = "tcp"
				attempt--
				continue
			}
			return nil, &ResolutionError{Msg: "server returned truncated response", Rcode: -1}
		}

		return r.recordsFromReply(ctx, name, qtype, reply)
	}

	return nil, &ResolutionError{
		Msg:   fmt.Sprintf("no response from any nameserver after %d attempts", attempts),
		Rcode: -1,
		Err:   lastErr,
	}
}

// acquireServer returns a live connection for uri. A pooled connection that
// has gone dead is evicted and redialed at most once per try.
func (r *Resolver) acquireServer(ctx context.Context, uri string) (serverConn, error) {
	return retry.DoWithData(func() (serverConn, error) {
		s, err := r.pool.get(ctx, uri)
		if err != nil {
			return nil, retry.Unrecoverable(err)
		}
		if !s.alive() {
			r.pool.evict(uri, s)
			return nil, errServerGone
		}
		return s, nil
	},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

// recordsFromReply groups the answer section by record type, caches each
// group under its own key with the group's smallest TTL, and builds the
// records for the queried type. An answer without the queried type is
// remembered as a negative entry.
func (r *Resolver) recordsFromReply(ctx context.Context, name string, qtype uint16, reply *dns.Msg) ([]Record, error) {
	answersByType := make(map[uint16][]string)
	minTTLByType := make(map[uint16]uint32)

	for _, rr := range reply.Answer {
		h := rr.Header()
		answersByType[h.Rrtype] = append(answersByType[h.Rrtype], rdataString(rr))
		if ttl, ok := minTTLByType[h.Rrtype]; !ok || h.Ttl < ttl {
			minTTLByType[h.Rrtype] = h.Ttl
		}
	}

	for rrtype, answers := range answersByType {
		// A zero TTL means the answer set must not be reused at all.
		if minTTLByType[rrtype] == 0 {
			continue
		}
		r.cacheSet(ctx, cacheKey(name, rrtype), answers, minTTLByType[rrtype])
	}

	answers, ok := answersByType[qtype]
	if !ok {
		r.cacheSet(ctx, cacheKey(name, qtype), nil, maxNegativeTTL)
		return nil, &NoRecordError{Name: name, Type: qtype}
	}

	ttl := minTTLByType[qtype]
	records := make([]Record, 0, len(answers))
	for _, data := range answers {
		records = append(records, Record{Data: data, Type: qtype, TTL: util.PointerTo(ttl)})
	}
	return records, nil
}

func (r *Resolver) cacheSet(ctx context.Context, key string, answers []string, ttl uint32) {
	value, err := encodeAnswers(answers)
	if err != nil {
		// Should never happen.
		return
	}

	// Cache write failures are non-fatal.
	if err := r.cache.Set(ctx, key, value, time.Duration(ttl)*time.Second); err != nil {
		Log.WithError(err).WithField("key", key).Warn("failed to write cache entry")
	}
}
