package provision

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Provider supplies the provisioning snapshots. Both values are gathered
// once; the provisioner consumes each exactly once.
type Provider interface {
	BootInfo() (*BootInfo, error)
	AttestationIDs() (*AttestationIdSet, error)
}

// StaticProvider serves snapshots loaded from a JSON file.
type StaticProvider struct {
	Boot BootInfo         `json:"boot_info"`
	IDs  AttestationIdSet `json:"attestation_ids"`
}

// LoadStaticProvider parses a provisioning data file.
func LoadStaticProvider(r io.Reader) (*StaticProvider, error) {
	var p StaticProvider
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing provisioning data: %w", err)
	}
	return &p, nil
}

// LoadStaticProviderFile opens and parses a provisioning data file.
func LoadStaticProviderFile(path string) (*StaticProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening provisioning data file: %w", err)
	}
	defer f.Close()
	return LoadStaticProvider(f)
}

func (p *StaticProvider) BootInfo() (*BootInfo, error) {
	boot := p.Boot
	return &boot, nil
}

func (p *StaticProvider) AttestationIDs() (*AttestationIdSet, error) {
	ids := p.IDs
	return &ids, nil
}

// RemoteProvider fetches provisioning snapshots from a local HTTP
// endpoint, the diagnostic stand-in for reading system properties.
type RemoteProvider struct {
	Address string
	Client  *http.Client
}

// NewRemoteProvider creates a provider against the given base address.
func NewRemoteProvider(address string) *RemoteProvider {
	return &RemoteProvider{
		Address: address,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *RemoteProvider) BootInfo() (*BootInfo, error) {
	var boot BootInfo
	if err := p.get("/bootinfo", &boot); err != nil {
		return nil, err
	}
	return &boot, nil
}

func (p *RemoteProvider) AttestationIDs() (*AttestationIdSet, error) {
	var ids AttestationIdSet
	if err := p.get("/attestation_ids", &ids); err != nil {
		return nil, err
	}
	return &ids, nil
}

func (p *RemoteProvider) get(path string, into any) error {
	resp, err := p.Client.Get(p.Address + path)
	if err != nil {
		return fmt.Errorf("calling provisioning data provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("provisioning data provider returned status %d: %s",
			resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("parsing provisioning data response: %w", err)
	}
	return nil
}
