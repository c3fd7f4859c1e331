package login

import (
	"fmt"
	"strings"
	"time"

	"github.com/dcrodman/otgate/internal/core/bytes"
	"github.com/dcrodman/otgate/internal/store"
)

const (
	disconnectLegacyOpcode  = 0x0A
	disconnectOpcode        = 0x0B
	tokenAcceptedOpcode     = 0x0C
	tokenRequiredOpcode     = 0x0D
	motdOpcode              = 0x14
	sessionKeyOpcode        = 0x28
	characterListOpcode     = 0x64
	disconnectOpcodeVersion = 1076

	// Largest count a single byte can carry.
	maxListEntries = 0xFF
	// World id, previewer flag and character world of the synthetic entry
	// prepended to spectator world lists.
	spectatorWorldID = 0xFF

	castPortOffset   = 1000
	recordPortOffset = 2000

	secondsPerDay = 24 * 60 * 60
)

// listingKind selects the world list variant.
type listingKind int

const (
	regularListing listingKind = iota
	castListing
	recordListing
)

func disconnectOpcodeFor(version uint16) byte {
	if version >= disconnectOpcodeVersion {
		return disconnectOpcode
	}
	return disconnectLegacyOpcode
}

func clampCount(n int) int {
	if n > maxListEntries {
		return maxListEntries
	}
	return n
}

// worldInfo holds everything written ahead of the character list.
type worldInfo struct {
	motd    string
	motdNum uint32
	// Session key halves; the game server expects "account\npassword".
	accountName string
	password    string
	worlds      []store.World
	kind        listingKind
}

func writeWorldInfo(w *bytes.Writer, info worldInfo) {
	if info.motd != "" {
		w.AddByte(motdOpcode)
		w.AddString(fmt.Sprintf("%d\n%s", info.motdNum, info.motd))
	}

	w.AddByte(sessionKeyOpcode)
	w.AddString(info.accountName + "\n" + info.password)

	w.AddByte(characterListOpcode)

	size := clampCount(len(info.worlds))
	portOffset := uint16(0)
	switch info.kind {
	case castListing, recordListing:
		label, offset := "Cast Info", uint16(castPortOffset)
		if info.kind == recordListing {
			label, offset = "Record Info", recordPortOffset
		}
		portOffset = offset

		w.AddByte(uint8(size + 1))
		w.AddByte(spectatorWorldID)
		w.AddString(label)
		w.AddString("")
		w.AddUint16(0)
		w.AddByte(spectatorWorldID)
	default:
		w.AddByte(uint8(size))
	}

	for _, world := range info.worlds[:size] {
		w.AddByte(world.ID)
		w.AddString(world.Name)
		w.AddString(world.IP)
		w.AddUint16(world.Port + portOffset)
		w.AddBool(world.Previewer)
	}
}

func writeCharacterList(w *bytes.Writer, characters []store.Character) {
	size := clampCount(len(characters))
	w.AddByte(uint8(size))
	for _, c := range characters[:size] {
		w.AddByte(c.WorldID)
		w.AddString(c.Name)
	}
}

// writePremium writes the account status block: always "normal", whether the
// account has premium access and when it runs out.
func writePremium(w *bytes.Writer, freePremium bool, premiumDays int, now time.Time) {
	w.AddByte(0)
	w.AddBool(freePremium || premiumDays > 0)
	if freePremium {
		w.AddUint32(0)
	} else {
		w.AddUint32(uint32(now.Unix() + int64(premiumDays)*secondsPerDay))
	}
}

func writeRecordList(w *bytes.Writer, records []store.Record) {
	size := clampCount(len(records))
	w.AddByte(uint8(size))
	for _, r := range records[:size] {
		w.AddByte(r.WorldID)
		w.AddString(fmt.Sprintf("%d: %s", r.ID, r.Name))
	}
	writeListingTrailer(w)
}

// writeCastList writes every cast as two character entries: the broadcasting
// player on its world, then a description on the synthetic "Cast Info" world.
// The count byte covers both and wraps past 127 casts, as deployed clients
// expect; every cast is still written.
func writeCastList(w *bytes.Writer, casts []store.Cast) {
	size := uint8(clampCount(len(casts)))
	w.AddByte(size * 2)
	for i, c := range casts[:size] {
		w.AddByte(c.WorldID)
		w.AddString(c.Name)
		w.AddByte(spectatorWorldID)
		w.AddString(castEntry(i+1, c))
	}
	writeListingTrailer(w)
}

func castEntry(ordinal int, c store.Cast) string {
	var entry strings.Builder
	fmt.Fprintf(&entry, "%d:", ordinal)
	if c.Protected {
		entry.WriteString(" * Protected *")
	}
	if c.Description != "" {
		fmt.Fprintf(&entry, " - %s -", c.Description)
	}
	fmt.Fprintf(&entry, " [%d viewers]", c.Spectators)
	return entry.String()
}

// Spectator listings end with an empty account status block.
func writeListingTrailer(w *bytes.Writer) {
	w.AddByte(0)
	w.AddByte(0)
	w.AddUint32(0)
}
