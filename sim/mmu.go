package sim

// Demand-allocated two-level page table covering the full 32-bit address
// space: 10 bits of first-level index, 10 of second-level, 12 of page
// offset (4 KiB pages). Nothing is allocated until a page is touched by
// the loader, so sparse address spaces stay cheap.

const (
	firstLevelBits  = 10
	secondLevelBits = 10
	pageBits        = 12

	firstLevelSize  = 1 << firstLevelBits
	secondLevelSize = 1 << secondLevelBits
	pageSize        = 1 << pageBits
)

type page [pageSize]byte

// MMU is the backing store behind the Memory adapter.
type MMU struct {
	tables [firstLevelSize]*[secondLevelSize]*page
}

func NewMMU() *MMU { return &MMU{} }

func firstLevelIndex(addr uint32) uint32  { return addr >> (secondLevelBits + pageBits) }
func secondLevelIndex(addr uint32) uint32 { return (addr >> pageBits) & (secondLevelSize - 1) }
func pageOffset(addr uint32) uint32       { return addr & (pageSize - 1) }

// PageExists reports whether the page holding addr has been allocated.
func (m *MMU) PageExists(addr uint32) bool {
	second := m.tables[firstLevelIndex(addr)]
	return second != nil && second[secondLevelIndex(addr)] != nil
}

// AllocatePage allocates the page holding addr, zero-filled. Returns
// false if it already existed.
func (m *MMU) AllocatePage(addr uint32) bool {
	i, j := firstLevelIndex(addr), secondLevelIndex(addr)
	if m.tables[i] == nil {
		m.tables[i] = &[secondLevelSize]*page{}
	}
	if m.tables[i][j] != nil {
		return false
	}
	m.tables[i][j] = &page{}
	return true
}

// Get8 reads one byte. The second return is false when the page is not
// resolvable.
func (m *MMU) Get8(addr uint32) (byte, bool) {
	second := m.tables[firstLevelIndex(addr)]
	if second == nil {
		return 0, false
	}
	p := second[secondLevelIndex(addr)]
	if p == nil {
		return 0, false
	}
	return p[pageOffset(addr)], true
}

// Set8 writes one byte into an already-allocated page.
func (m *MMU) Set8(addr uint32, v byte) bool {
	second := m.tables[firstLevelIndex(addr)]
	if second == nil {
		return false
	}
	p := second[secondLevelIndex(addr)]
	if p == nil {
		return false
	}
	p[pageOffset(addr)] = v
	return true
}
