// Package notifications delivers pipeline events as ntfy push notifications.
package notifications
