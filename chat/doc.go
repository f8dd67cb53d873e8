// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat maintains a single consistent view of conversations,
// message history, and unread counters under updates from three
// independent sources: the REST fetch, the realtime push channel, and
// local user actions (selecting a conversation, sending a message).
//
// The Synchronizer owns all chat state. The presentation layer reads
// snapshots and issues intents through its operations; nothing else
// mutates the collections. Every reconciliation pass runs as one
// atomic read-modify-write under the synchronizer's lock, so a REST
// refresh racing a pushed message cannot interleave mid-update —
// and the unread merge itself is a max over sources, which makes the
// outcome independent of arrival order.
package chat
