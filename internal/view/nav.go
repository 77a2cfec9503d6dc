package view

import "strings"

// NavLink is one sidebar entry.
type NavLink struct {
	Label  string
	Path   string
	Icon   string
	Active bool
}

var navigation = []NavLink{
	{Label: "Dashboard", Path: "/", Icon: "home"},
	{Label: "All Products", Path: "/products/grid", Icon: "grid"},
	{Label: "Products", Path: "/products", Icon: "box"},
	{Label: "Create Product", Path: "/products/new", Icon: "plus"},
	{Label: "Expired Products", Path: "/expired", Icon: "clock"},
	{Label: "Low Stocks", Path: "/low-stock", Icon: "alert"},
	{Label: "Category List", Path: "/categories", Icon: "tag"},
}

// Navigation returns the sidebar links with the one matching current marked.
func Navigation(current string) []NavLink {
	active := ActiveLink(current)
	out := make([]NavLink, len(navigation))
	for i, link := range navigation {
		link.Active = link.Path == active
		out[i] = link
	}
	return out
}

// ActiveLink picks the link whose path is the longest prefix of current.
// "/" only matches itself.
func ActiveLink(current string) string {
	if current == "" {
		current = "/"
	}
	best := ""
	for _, link := range navigation {
		switch {
		case link.Path == "/":
			if current == "/" {
				best = "/"
			}
		case current == link.Path || strings.HasPrefix(current, link.Path+"/"):
			if len(link.Path) > len(best) {
				best = link.Path
			}
		}
	}
	return best
}
