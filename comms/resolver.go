package comms

import (
	"fmt"
	"strconv"

	"github.com/miekg/dns"
)

// DefaultResolverAddr is the local stub resolver queried for SRV
// records when SRV-based endpoint resolution is enabled.
const DefaultResolverAddr = "127.0.0.53:53"

// ResolveSRVEndpoint resolves a comm service domain to a "host:port"
// endpoint using DNS SRV records. The first SRV answer wins; comm
// service deployments publish exactly one.
func ResolveSRVEndpoint(domain, resolverAddr string) (string, error) {
	if resolverAddr == "" {
		resolverAddr = DefaultResolverAddr
	}

	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = true
	m.Question = []dns.Question{
		{Name: dns.Fqdn(domain), Qtype: dns.TypeSRV, Qclass: dns.ClassINET},
	}

	c := new(dns.Client)
	in, _, err := c.Exchange(m, resolverAddr)
	if err != nil {
		return "", fmt.Errorf("SRV query for %s: %w", domain, err)
	}

	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			host := srv.Target
			if len(host) > 0 && host[len(host)-1] == '.' {
				host = host[:len(host)-1]
			}
			return host + ":" + strconv.Itoa(int(srv.Port)), nil
		}
	}
	return "", fmt.Errorf("no SRV records for %s", domain)
}
