/*
Package apps is the registry adapter: it answers presence queries and launch
requests against the host's application registry.

Two backends implement Registry:

  - DesktopRegistry reads freedesktop.org desktop entries from the XDG
    applications directories. The app identifier is the desktop file ID.
  - CatalogRegistry reads a static TOML or YAML catalog.

Launching goes through a Starter so the one side effect of the package can be
replaced in tests. Guarded adds a circuit breaker in front of any Registry.
*/
package apps
