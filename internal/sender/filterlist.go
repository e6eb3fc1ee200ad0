package sender

import (
	"github.com/oferchen/oc-rsync-sub001/internal/filter"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncwire"
)

// FilterList is the ordered rule set the client transmits to the server
// before a delete-mode transfer, so the server's own deletions honor the
// same excludes the client used to build its file list (spec.md §4.2).
type FilterList struct {
	Filters []filter.Rule
}

// RecvFilterList reads a length-prefixed, zero-length-terminated sequence
// of filter rule lines (classic rsync send_filter_list wire shape).
func RecvFilterList(c *rsyncwire.Conn) (*FilterList, error) {
	var fl FilterList
	seq := 0
	for {
		n, err := c.ReadUint32()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		line, err := c.ReadN(int(n))
		if err != nil {
			return nil, err
		}
		rule, err := filter.ParseLine(string(line), filter.AnyPriority, seq)
		if err != nil {
			if filter.IsSkippable(err) {
				continue
			}
			return nil, err
		}
		seq++
		fl.Filters = append(fl.Filters, rule)
	}
	return &fl, nil
}

// SendFilterList is the mirror of RecvFilterList, used by the client side
// of a delete-mode transfer.
func SendFilterList(c *rsyncwire.Conn, rules []string) error {
	for _, line := range rules {
		if err := c.WriteUint32(uint32(len(line))); err != nil {
			return err
		}
		if _, err := c.Writer.Write([]byte(line)); err != nil {
			return err
		}
	}
	return c.WriteUint32(0)
}
