package broker

// SendToConnection delivers one frame to one connection. It returns
// ErrConnectionNotFound for unknown ids; encoding and write failures
// surface as errors wrapping ErrEncode and ErrWrite. A write failure
// also tears the connection down.
func (r *Registry) SendToConnection(id string, f Frame) error {
	conn := r.Get(id)
	if conn == nil {
		return ErrConnectionNotFound
	}
	return conn.Send(f)
}

// SendToUser delivers a frame to every connection registered for a user
// and returns the number of successful deliveries.
func (r *Registry) SendToUser(userID string, f Frame) int {
	r.mu.RLock()
	ids := idSnapshot(r.byUser[userID])
	r.mu.RUnlock()

	return r.sendToIDs(ids, f)
}

// SendToChannel delivers a frame to every connection on a channel and
// returns the number of successful deliveries.
func (r *Registry) SendToChannel(channel string, f Frame) int {
	r.mu.RLock()
	ids := idSnapshot(r.byChannel[channel])
	r.mu.RUnlock()

	return r.sendToIDs(ids, f)
}

// Broadcast delivers a frame to every registered connection and returns
// the number of successful deliveries.
func (r *Registry) Broadcast(f Frame) int {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	return r.sendToIDs(ids, f)
}

// sendToIDs writes a frame to each id in a previously captured snapshot.
// Connections that disappeared since the snapshot, or whose transport
// fails mid-delivery, are skipped without aborting the loop. The
// registry lock is never held across a write.
func (r *Registry) sendToIDs(ids []string, f Frame) int {
	sent := 0
	for _, id := range ids {
		r.mu.RLock()
		conn := r.conns[id]
		r.mu.RUnlock()

		if conn == nil {
			continue
		}
		if err := conn.Send(f); err != nil {
			r.logger.Debug("delivery failed", "id", id, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// idSnapshot copies an index set into a slice while the caller holds the
// registry lock.
func idSnapshot(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
