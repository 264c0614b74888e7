package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Deployment describes a forwarder deployment: where it lives and what it registered.
type Deployment struct {
	Forwarder      string `yaml:"trusted_forwarder_contract_address" toml:"trusted_forwarder_contract_address"`
	Recipient      string `yaml:"recipient_contract_address" toml:"recipient_contract_address"`
	DomainName     string `yaml:"domain_name" toml:"domain_name"`
	DomainVersion  string `yaml:"domain_version" toml:"domain_version"`
	TypeName       string `yaml:"type_name" toml:"type_name"`
	TypeSuffixData string `yaml:"type_suffix_data" toml:"type_suffix_data"`
}

// LoadDeployment reads a deployment profile, as TOML when the file has a .toml
// extension and as YAML otherwise. Unknown keys are rejected.
func LoadDeployment(path string) (*Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment file: %w", err)
	}
	var d Deployment
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = decodeTOML(data, &d)
	} else {
		err = decodeYAML(data, &d)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode deployment file %s: %w", path, err)
	}
	for name, addr := range map[string]string{
		"trusted_forwarder_contract_address": d.Forwarder,
		"recipient_contract_address":         d.Recipient,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid %s in deployment file: %q", name, addr)
		}
	}
	return &d, nil
}

func decodeYAML(data []byte, d *Deployment) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(d)
}

func decodeTOML(data []byte, d *Deployment) error {
	md, err := toml.Decode(string(data), d)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys %v", undecoded)
	}
	return nil
}
