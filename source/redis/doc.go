// Package redis provides a lead.Source backed by Redis.
//
// A record lives in the hash <prefix>record:<id>. Free-form fields are stored
// alongside the record's own fields with an "f:" prefix. The set
// <prefix>status:<STATUS> lists the ids currently in that status, so fetching
// new records is a single SMEMBERS.
package redis
