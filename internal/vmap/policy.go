package vmap

// Policy lets the content layer switch off vmap queries per map and map
// liquid types to liquid status flags.
type Policy interface {
	LiquidFlags(liquidType uint32) uint32
	IsVMAPDisabledFor(entry uint32, flags DisableFlag) bool
}

// NopPolicy disables nothing and reports no liquid flags.
type NopPolicy struct{}

func (NopPolicy) LiquidFlags(uint32) uint32                  { return 0 }
func (NopPolicy) IsVMAPDisabledFor(uint32, DisableFlag) bool { return false }
