package rsctable

// DAUnallocated marks a vring device address the firmware leaves for the
// host to allocate and report back, matching FW_RSC_ADDR_ANY in the
// original remoteproc convention.
const DAUnallocated uint32 = 0xffffffff

// Config names the platform-specific addresses and sizes
// rsc_table_ipu.h hardcodes per board; callers supply their own rather
// than this package carrying one SoC's memory map.
type Config struct {
	VRing0DA, VRing1DA   uint32
	VRingAlign           uint32
	VRingNum             uint32
	VDevFeatures         uint32
	DataDA, DataLen      uint32
	TextDA, TextLen      uint32
	TraceDA, TraceLen    uint32
	IPCDA, IPCPA, IPCLen uint32
	ExtraDevMem          []DevMem
}

// Default builds the resource table this module's example firmware
// advertises: one rpmsg vdev with two vrings, a data carveout, a text
// carveout, one trace buffer, and an IPC devmem window, plus whatever
// additional devmem windows cfg.ExtraDevMem names. Matches the entry set
// and ordering of rsc_table_ipu.h's ti_resources_ResourceTable, generalized
// away from its hardcoded OMAP4 addresses.
func Default(cfg Config) []byte {
	entries := []Entry{
		VDev{
			ID:        VirtioIDRPMsg,
			DFeatures: cfg.VDevFeatures,
			Vrings: []VDevVring{
				{DA: cfg.VRing0DA, Align: cfg.VRingAlign, Num: cfg.VRingNum, NotifyID: 1},
				{DA: cfg.VRing1DA, Align: cfg.VRingAlign, Num: cfg.VRingNum, NotifyID: 2},
			},
		},
		Carveout{DA: cfg.DataDA, Len: cfg.DataLen, Name: "IPU_MEM_DATA"},
		Carveout{DA: cfg.TextDA, Len: cfg.TextLen, Name: "IPU_MEM_TEXT"},
		Trace{DA: cfg.TraceDA, Len: cfg.TraceLen, Name: "trace:core0"},
		DevMem{DA: cfg.IPCDA, PA: cfg.IPCPA, Len: cfg.IPCLen, Name: "IPU_MEM_IPC"},
	}

	for _, d := range cfg.ExtraDevMem {
		entries = append(entries, d)
	}

	return Build(1, entries)
}
