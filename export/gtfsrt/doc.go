// Package gtfsrt renders the stored SIRI data as GTFS-Realtime feeds:
// vehicle monitoring becomes VehiclePositions, estimated timetables
// become TripUpdates and situations become Alerts.
package gtfsrt
