package testutil

import (
	"net/http"

	id "guardian/pkg/domain"
	"guardian/pkg/requestcontext"
)

// AsParent simulates what the auth middleware does for a parent token.
func AsParent(req *http.Request, parentID id.ParentID) *http.Request {
	return req.WithContext(requestcontext.WithParentID(req.Context(), parentID))
}

// AsDevice simulates what the auth middleware does for a device token
// paired with childID.
func AsDevice(req *http.Request, deviceID string, childID id.ChildID) *http.Request {
	return req.WithContext(requestcontext.WithDeviceID(req.Context(), deviceID, childID))
}
