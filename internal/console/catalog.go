// internal/console/catalog.go
package console

import (
	"net/url"
	"strings"
)

// Console domain constants. Authentication state is always derived from the
// browser's live URL against these, never from a cached flag.
const (
	// AuthenticatedDomain is the suffix every authenticated console page
	// shares, including regional subdomains.
	AuthenticatedDomain = "console.aws.amazon.com"
	// SignInDomain hosts the identity-provider handshake. Re-visiting it on
	// an already-authenticated browser triggers the "choose your session"
	// interstitial, so it must only ever be navigated to once per session.
	SignInDomain = "signin.aws.amazon.com"
	// SignInEntryURL is where an unauthenticated session starts.
	SignInEntryURL = "https://signin.aws.amazon.com/console"
)

// OnAuthenticatedDomain reports whether a live browser URL belongs to the
// authenticated console. Sign-in pages never match, even though the hostnames
// share a suffix with some SSO setups.
func OnAuthenticatedDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	if host == SignInDomain || strings.HasSuffix(host, "."+SignInDomain) {
		return false
	}
	return host == AuthenticatedDomain || strings.HasSuffix(host, "."+AuthenticatedDomain)
}

// serviceEntry describes how one console service is addressed: a deep-link
// template for a specific resource, an optional per-tab fragment, and the
// list-view URL used by the click-through strategy.
type serviceEntry struct {
	// deepLink is a URL template over {region} and {resource}. Empty when
	// the service has no stable resource-level addressing.
	deepLink string
	// tabParam maps normalized tab names to the query/fragment suffix the
	// console uses for that tab.
	tabParam map[string]string
	// listView is a URL template over {region} that lands on the service's
	// resource listing.
	listView string
	// marker is text that must appear on a correctly-landed resource page,
	// in addition to the resource name itself.
	marker string
}

// catalog covers the services the original evidence workflows exercised.
// Services missing from here are still reachable: the resolver falls through
// to console search and click-through, which need only listView (and even
// that can be reached through search).
var catalog = map[string]serviceEntry{
	"rds": {
		deepLink: "https://{region}.console.aws.amazon.com/rds/home?region={region}#database:id={resource}",
		tabParam: map[string]string{
			"configuration": ";tab=configuration",
			"connectivity":  ";tab=connectivity",
			"monitoring":    ";tab=monitoring",
			"logs":          ";tab=logs-and-events",
			"maintenance":   ";tab=maintenance-and-backups",
			"tags":          ";tab=tags",
		},
		listView: "https://{region}.console.aws.amazon.com/rds/home?region={region}#databases:",
		marker:   "DB identifier",
	},
	"ec2": {
		deepLink: "https://{region}.console.aws.amazon.com/ec2/home?region={region}#InstanceDetails:instanceId={resource}",
		listView: "https://{region}.console.aws.amazon.com/ec2/home?region={region}#Instances:",
		marker:   "Instance state",
	},
	"s3": {
		deepLink: "https://s3.console.aws.amazon.com/s3/buckets/{resource}?region={region}",
		tabParam: map[string]string{
			"objects":     "&tab=objects",
			"properties":  "&tab=properties",
			"permissions": "&tab=permissions",
			"metrics":     "&tab=metrics",
			"management":  "&tab=management",
		},
		listView: "https://s3.console.aws.amazon.com/s3/buckets?region={region}",
		marker:   "Amazon S3",
	},
	"lambda": {
		deepLink: "https://{region}.console.aws.amazon.com/lambda/home?region={region}#/functions/{resource}",
		tabParam: map[string]string{
			"code":          "?tab=code",
			"configuration": "?tab=configure",
			"monitoring":    "?tab=monitoring",
			"aliases":       "?tab=aliases",
			"versions":      "?tab=versions",
		},
		listView: "https://{region}.console.aws.amazon.com/lambda/home?region={region}#/functions",
		marker:   "Function overview",
	},
	"iam": {
		deepLink: "https://console.aws.amazon.com/iam/home#/roles/details/{resource}",
		listView: "https://console.aws.amazon.com/iam/home#/roles",
		marker:   "Permissions policies",
	},
	"cloudtrail": {
		deepLink: "https://{region}.console.aws.amazon.com/cloudtrail/home?region={region}#/trails/{resource}",
		listView: "https://{region}.console.aws.amazon.com/cloudtrail/home?region={region}#/trails",
		marker:   "Trail details",
	},
}

// expandTemplate substitutes the {region} and {resource} tokens of a catalog
// URL template.
func expandTemplate(template string, t Target) string {
	return strings.NewReplacer(
		"{region}", url.PathEscape(t.Region),
		"{resource}", url.PathEscape(t.Resource),
	).Replace(template)
}

// DeepLinkFor builds the direct URL for a target when the service supports
// stable resource addressing. The second return is false when the deep-link
// tier cannot serve this target and the resolver should start at search.
func DeepLinkFor(t Target) (string, bool) {
	entry, ok := catalog[t.Service]
	if !ok || entry.deepLink == "" {
		return "", false
	}
	link := expandTemplate(entry.deepLink, t)
	if t.Tab != "" {
		if suffix, ok := entry.tabParam[NormalizeTab(t.Tab)]; ok {
			link += suffix
		}
		// An unmapped tab is not fatal: the resolver clicks the tab after
		// landing on the resource page.
	}
	return link, true
}

// ListViewFor returns the service's resource-listing URL for the
// click-through strategy.
func ListViewFor(t Target) (string, bool) {
	entry, ok := catalog[t.Service]
	if !ok || entry.listView == "" {
		return "", false
	}
	return expandTemplate(entry.listView, t), true
}

// MarkerFor returns service-specific text expected on a correctly-landed
// resource page. Empty when the catalog does not know the service.
func MarkerFor(service string) string {
	return catalog[service].marker
}

// NormalizeTab folds a human-supplied tab label ("Configuration",
// "logs-and-events") into the catalog's key form.
func NormalizeTab(tab string) string {
	tab = strings.ToLower(strings.TrimSpace(tab))
	tab = strings.ReplaceAll(tab, " ", "-")
	// The console labels drift between releases ("Logs & events" vs "Logs");
	// match on the stable first word.
	if i := strings.IndexAny(tab, "-&"); i > 0 {
		if first := strings.Trim(tab[:i], "-"); first != "" {
			if _, known := commonTabs[first]; known {
				return first
			}
		}
	}
	return tab
}

var commonTabs = map[string]struct{}{
	"configuration": {}, "monitoring": {}, "logs": {}, "tags": {},
	"permissions": {}, "properties": {}, "maintenance": {}, "connectivity": {},
}

// KnownService reports whether the deep-link catalog covers a service.
func KnownService(service string) bool {
	_, ok := catalog[service]
	return ok
}
