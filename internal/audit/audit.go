// Package audit implements the Audit Engine: the nine-step decision
// pipeline that turns one ArpObservation into IP state table mutations
// and, when warranted, alerts. Grounded on original_source/src/antidote.c's
// handlerequest/handlereply/processether/processip and audit.c's
// checkmacchanges/checknetarps/checktimeouts, re-expressed as Go methods
// operating on the hash-table-backed internal/table instead of the
// original's linked list.
package audit

import (
	"fmt"
	"time"

	"github.com/jamescort/antidote-ng/internal/alert"
	"github.com/jamescort/antidote-ng/internal/config"
	"github.com/jamescort/antidote-ng/internal/decode"
	"github.com/jamescort/antidote-ng/internal/table"
)

// Alerter is the subset of the alert dispatcher the engine depends on.
// *alert.Dispatcher satisfies it; tests may supply a fake.
type Alerter interface {
	Fire(severity alert.Severity, message string)
}

// Engine is the audit pipeline. It owns no state of its own beyond its
// collaborators: the table, the configuration, the alert sink, and a
// clock (overridable only for deterministic tests).
type Engine struct {
	Table *table.Table
	Cfg   config.Config
	Alert Alerter
	Now   func() time.Time
}

// New constructs an Engine with a real wall clock.
func New(tbl *table.Table, cfg config.Config, alerter Alerter) *Engine {
	return &Engine{Table: tbl, Cfg: cfg, Alert: alerter, Now: time.Now}
}

// Process runs the nine-step pipeline documented in spec.md §4.3 against
// one observation. The age check (spec step 7) runs ahead of the
// lookup-or-insert step rather than after the counter update: evicting a
// stale record before this observation's lookup lets the fresh record it
// then seeds carry this observation's own counts, instead of being
// created, incremented, and immediately discarded by a later eviction
// (spec.md §8 scenario 6 requires the post-eviction observation to seed a
// record with counters=1, not an empty table).
func (e *Engine) Process(obs decode.ArpObservation) {
	if obs.Op == decode.OpOther {
		e.Alert.Fire(alert.Notice, "unrecognised ARP type; RARP unsupported")
		return
	}

	now := e.Now()

	// 1. Pick the key IP.
	key := obs.TargetIP
	if obs.Op == decode.OpReply {
		key = obs.SenderIP
	}

	// 7. Age check, evaluated against whatever record key currently holds.
	// A no-op if key is absent from the table.
	e.Table.EvictIfExpired(key, now, e.Cfg.Timeout)

	// 2. Lookup-or-insert with op-appropriate seed.
	rec := e.Table.Lookup(key)
	isNew := rec == nil
	if isNew {
		seed := table.Seed{}
		if obs.Op == decode.OpReply {
			seed.MAC = obs.SenderMACEth
		}
		rec = e.Table.Insert(key, seed)
		// Stamp the record with the engine's clock, the same clock the age
		// check compares against.
		rec.LastReset = now.Truncate(time.Second)
	}

	if obs.Op == decode.OpReply {
		// 3. First-ever reply for this record pins the MAC from the
		// Ethernet header.
		if !rec.MACKnown() {
			rec.MAC = obs.SenderMACEth
		}

		// 4. MAC-change check. Skipped on the record's first observation:
		// a brand-new record has no prior confirmed MAC to have changed
		// from, so only step 5's cross-check applies to it (spec.md §8
		// scenario 3 fires the conflicting-MAC alert alone on a cold-start
		// mismatched reply).
		if !isNew && e.Cfg.CheckMACChanges && rec.MACKnown() && rec.MAC != obs.SenderMACArp {
			e.Alert.Fire(alert.Highest, fmt.Sprintf(
				"a MAC address has changed for %s: was %s, now %s",
				ipString(key), macString(rec.MAC), macString(obs.SenderMACArp)))
		}
		// The canonical stored MAC is always the Ethernet source address,
		// per spec.md §3 and §9 (the original's populateipspacerep pins
		// mac_address from ether_shost and only ever compares against
		// arp_sha, never stores it).
		rec.MAC = obs.SenderMACEth

		// 5. Ethernet/ARP MAC cross-check, orthogonal to step 4.
		if obs.SenderMACEth != obs.SenderMACArp {
			e.Alert.Fire(alert.Highest, fmt.Sprintf(
				"conflicting MAC details for %s: ethernet %s, arp %s",
				ipString(key), macString(obs.SenderMACEth), macString(obs.SenderMACArp)))
		}
	}

	// 6. Counter update.
	if obs.Op == decode.OpRequest {
		rec.Requests++
	} else {
		rec.Replies++
	}

	// 8. Imbalance check, using the already-incremented counters.
	net := int(rec.Replies) - int(rec.Requests)
	fired := false
	switch {
	case net > e.Cfg.PoisonThreshold:
		e.Alert.Fire(alert.Highest, fmt.Sprintf("suspected poisoner impersonating %s", ipString(key)))
		fired = true
	case net < e.Cfg.BadNetThreshold:
		e.Alert.Fire(alert.Highest, fmt.Sprintf("unusual number of unanswered ARP requests for %s", ipString(key)))
		fired = true
	}

	// 9. Reset on either imbalance branch firing.
	if fired {
		e.Table.Reset(rec, now)
	}
}

func ipString(ip [4]byte) string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}

func macString(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}
