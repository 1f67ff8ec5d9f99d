package collector

// datacenterASNs maps autonomous system numbers of hosting, cloud and VPN
// providers to a display name. Residential users rarely originate from them.
var datacenterASNs = map[uint]string{
	16509:  "Amazon AWS",
	14618:  "Amazon AWS",
	15169:  "Google Cloud",
	396982: "Google Cloud",
	8075:   "Microsoft Azure",
	14061:  "DigitalOcean",
	24940:  "Hetzner",
	16276:  "OVH",
	12876:  "Scaleway",
	49981:  "WorldStream",
	20473:  "Vultr",
	60068:  "CDN77",
	9009:   "M247",
	20940:  "Akamai",
	13335:  "Cloudflare",
	63949:  "Linode",
	46606:  "Unified Layer",
	36352:  "ColoCrossing",
}

// DatacenterProvider returns the provider name when asn belongs to a known
// hosting or VPN network.
func DatacenterProvider(asn uint) (string, bool) {
	name, ok := datacenterASNs[asn]
	return name, ok
}
