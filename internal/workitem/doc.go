// Package workitem defines the values that flow through the relay pipeline and
// parses TFS WorkItemChangedEvent documents into them.
//
// A ChangeEvent is built once per inbound notification and passed by value.
// Summary is the normalized result of a work item lookup. ParseEvent reports
// documents it cannot use with *MalformedEventError.
package workitem
