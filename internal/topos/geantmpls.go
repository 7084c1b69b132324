package topos

import (
	"fmt"

	"topozoo/internal/topology"
)

// geantCities lists the GEANT points of presence in switch order: the
// switch for geantCities[i] is s<i+1> and its host is h<i+1>.
var geantCities = []string{
	"ATH", "LIS", "LON", "BRU", "PAR", "DUB", "MAD", "GEN", "MIL", "SOF",
	"BUC", "VIE", "FRA", "COP", "TLN", "RIG", "KAU", "POZ", "PRA", "BRA",
	"ZAG", "LJU", "BUD", "MLT", "LUX", "MAR", "HAM", "AMS",
}

// Switches in the MPLS variant that speak OpenFlow 1.3.
var geantOpenFlow13 = map[string]bool{"LIS": true, "MIL": true, "LJU": true}

// geantTrunks are the inter-PoP links of the published map, all 10 Mbit/s.
var geantTrunks = [][2]string{
	{"ATH", "MIL"}, {"MIL", "VIE"}, {"MIL", "MAR"}, {"MIL", "GEN"}, {"MIL", "MLT"},
	{"GEN", "FRA"}, {"GEN", "PAR"}, {"GEN", "MAR"}, {"MAR", "MAD"}, {"MAD", "PAR"},
	{"MAD", "LIS"}, {"LIS", "LON"}, {"LON", "PAR"}, {"LON", "DUB"}, {"LON", "BRU"},
	{"BRU", "AMS"}, {"AMS", "LUX"}, {"LUX", "FRA"}, {"AMS", "HAM"}, {"HAM", "FRA"},
	{"HAM", "COP"}, {"COP", "AMS"}, {"FRA", "POZ"}, {"FRA", "PRA"}, {"FRA", "BUD"},
	{"FRA", "VIE"}, {"POZ", "PRA"}, {"POZ", "KAU"}, {"KAU", "RIG"}, {"ZAG", "VIE"},
	{"ZAG", "BUD"}, {"BUD", "PRA"}, {"BUD", "BRA"}, {"BUD", "BUC"}, {"BUD", "SOF"},
	{"BUD", "LJU"}, {"BUC", "SOF"}, {"BUC", "VIE"}, {"VIE", "BRA"}, {"RIG", "TLN"},
	{"TLN", "HAM"},
}

const geantTrunkBandwidth = 10

// GeantMpls registers the GEANT MPLS topology (Internet Topology Zoo) on g:
// one switch per city, one host per switch, and the 10 Mbit/s trunks.
func GeantMpls(g topology.Graph) {
	sw := make(map[string]string, len(geantCities))

	for i, city := range geantCities {
		name := fmt.Sprintf("s%d", i+1)
		sw[city] = name
		opts := []topology.NodeOption{topology.WithLabel(city)}
		if geantOpenFlow13[city] {
			opts = append(opts, topology.WithProtocols("OpenFlow13"))
		}
		g.AddSwitch(name, opts...)
	}

	for i := range geantCities {
		g.AddHost(fmt.Sprintf("h%d", i+1))
	}

	for i := range geantCities {
		g.AddLink(fmt.Sprintf("s%d", i+1), fmt.Sprintf("h%d", i+1))
	}

	for _, trunk := range geantTrunks {
		g.AddLink(sw[trunk[0]], sw[trunk[1]], topology.WithBandwidth(geantTrunkBandwidth))
	}
}

// NewGeantMpls builds a fresh GEANT MPLS topology.
func NewGeantMpls() *topology.Topology {
	t := topology.NewTopology()
	GeantMpls(t)
	return t
}
