package codec

import (
	"strings"

	"github.com/oferchen/oc-rsync-sub001/internal/rsyncwire"
)

// PreferenceFor builds the codec preference list a connection should offer,
// honoring --compress/-z (enabled) and an explicit --compress-choice/--zc
// name (choice, empty meaning "use Preferred"). Disabled compression always
// offers only None.
func PreferenceFor(enabled bool, choice string) []Name {
	if !enabled {
		return []Name{None}
	}
	if choice == "" {
		return Preferred
	}
	wanted := decodeNames(strings.ReplaceAll(choice, " ", ""))
	prefs := make([]Name, 0, len(wanted)+1)
	prefs = append(prefs, wanted...)
	prefs = append(prefs, None)
	return prefs
}

func encodeNames(names []Name) string {
	ss := make([]string, len(names))
	for i, n := range names {
		ss[i] = string(n)
	}
	return strings.Join(ss, ",")
}

func decodeNames(s string) []Name {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	names := make([]Name, len(parts))
	for i, p := range parts {
		names[i] = Name(p)
	}
	return names
}

func writeNames(c *rsyncwire.Conn, names []Name) error {
	s := encodeNames(names)
	if err := c.WriteInt32(int32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	_, err := c.Writer.Write([]byte(s))
	return err
}

func readNames(c *rsyncwire.Conn) ([]Name, error) {
	n, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf, err := c.ReadN(int(n))
	if err != nil {
		return nil, err
	}
	return decodeNames(string(buf)), nil
}

// OfferThenAccept runs the initiator's half of the codec exchange (§4.8):
// it sends its preference list first, then reads the peer's, mirroring the
// write-then-read ordering the version exchange already uses so a
// pipe-backed transport can't deadlock with both ends blocked on read.
func OfferThenAccept(c *rsyncwire.Conn, mine []Name) (Name, error) {
	if err := writeNames(c, mine); err != nil {
		return "", err
	}
	peer, err := readNames(c)
	if err != nil {
		return "", err
	}
	return Negotiate(mine, peer)
}

// AcceptThenOffer runs the responder's half of the codec exchange: it reads
// the peer's preference list first, then sends its own.
func AcceptThenOffer(c *rsyncwire.Conn, mine []Name) (Name, error) {
	peer, err := readNames(c)
	if err != nil {
		return "", err
	}
	if err := writeNames(c, mine); err != nil {
		return "", err
	}
	return Negotiate(mine, peer)
}
