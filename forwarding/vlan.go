package forwarding

// VLANFilter only lets frames through when the source and the destination
// are both assigned to the same VLAN. Unassigned addresses are refused.
type VLANFilter struct {
	membership map[string]int
}

// NewVLANFilter creates a filter with no assigned address.
func NewVLANFilter() *VLANFilter {
	return &VLANFilter{membership: make(map[string]int)}
}

// Assign puts the address into a VLAN.
func (f *VLANFilter) Assign(addr string, vlan int) {
	f.membership[addr] = vlan
}

// VLANOf returns the VLAN of the address, if it is assigned.
func (f *VLANFilter) VLANOf(addr string) (int, bool) {
	vlan, found := f.membership[addr]
	return vlan, found
}

// Allow returns true if src and dst are assigned to the same VLAN.
func (f *VLANFilter) Allow(src, dst string) bool {
	srcVLAN, found := f.VLANOf(src)
	if !found {
		return false
	}

	dstVLAN, found := f.VLANOf(dst)
	if !found {
		return false
	}

	return srcVLAN == dstVLAN
}
