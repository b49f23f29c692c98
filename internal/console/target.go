// internal/console/target.go

// Package console holds the domain model shared by the navigation and capture
// layers: targets, deep-link templates, and the failure taxonomy.
package console

import (
	"fmt"
	"strings"
)

// Target identifies the exact console view a capture request must land on.
// It is an immutable value object; construct it through NewTarget so the
// placeholder check cannot be bypassed.
type Target struct {
	Service  string
	Resource string
	Tab      string
	Region   string
}

// genericPlaceholders are words the orchestration layer has been observed to
// pass when it does not actually know a resource name. Navigating on one of
// these wastes a full strategy cascade and produces evidence of nothing, so
// they are rejected before any browser interaction.
var genericPlaceholders = map[string]struct{}{
	"console":   {},
	"database":  {},
	"databases": {},
	"instance":  {},
	"instances": {},
	"resource":  {},
	"resources": {},
	"bucket":    {},
	"buckets":   {},
	"function":  {},
	"functions": {},
	"cluster":   {},
	"clusters":  {},
	"server":    {},
	"service":   {},
	"all":       {},
	"default":   {},
	"example":   {},
	"test":      {},
	"unknown":   {},
	"n/a":       {},
	"none":      {},
	"tbd":       {},
}

// NewTarget validates and constructs a navigation target. The resource must
// be a concrete identifier, not a generic placeholder, and service/region are
// normalized to the lowercase forms the deep-link catalog uses.
func NewTarget(service, resource, tab, region string) (Target, error) {
	service = strings.ToLower(strings.TrimSpace(service))
	resource = strings.TrimSpace(resource)
	tab = strings.TrimSpace(tab)
	region = strings.ToLower(strings.TrimSpace(region))

	if service == "" {
		return Target{}, ErrInvalidTarget.WithDetail("service is empty")
	}
	if region == "" {
		return Target{}, ErrInvalidTarget.WithDetail("region is empty")
	}
	if resource == "" {
		return Target{}, ErrInvalidTarget.WithDetail("resource identifier is empty")
	}
	if _, generic := genericPlaceholders[strings.ToLower(resource)]; generic {
		return Target{}, ErrInvalidTarget.WithDetail(
			fmt.Sprintf("%q is a generic placeholder, not a resource name", resource))
	}

	return Target{Service: service, Resource: resource, Tab: tab, Region: region}, nil
}

// CheckEnumerated verifies the resource identifier against a list of known
// resources for the service, as supplied by the inventory collaborator. An
// empty list skips the check; enumeration is advisory when the service's
// resources cannot be listed via API.
func (t Target) CheckEnumerated(known []string) error {
	if len(known) == 0 {
		return nil
	}
	for _, name := range known {
		if strings.EqualFold(name, t.Resource) {
			return nil
		}
	}
	return ErrInvalidTarget.WithDetail(
		fmt.Sprintf("resource %q was not found among %d enumerated %s resources", t.Resource, len(known), t.Service))
}

// String renders the target for logs and artifact metadata.
func (t Target) String() string {
	if t.Tab == "" {
		return fmt.Sprintf("%s/%s@%s", t.Service, t.Resource, t.Region)
	}
	return fmt.Sprintf("%s/%s#%s@%s", t.Service, t.Resource, t.Tab, t.Region)
}
