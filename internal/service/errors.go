package service

import "errors"

// --- Error Definitions ---
var (
	ErrPlanNotFound        = errors.New("protocol plan not found")
	ErrPlanAccessDenied    = errors.New("access denied to this protocol plan")
	ErrPlanArchived        = errors.New("protocol plan is archived")
	ErrInstanceNotFound    = errors.New("protocol instance not found")
	ErrInstanceAccess      = errors.New("access denied to this protocol instance")
	ErrInvalidStatus       = errors.New("invalid protocol instance status")
	ErrSnapshotUnavailable = errors.New("no exported snapshot for this protocol")

	ErrCustomerNotFound   = errors.New("customer user not found")
	ErrCustomerNotRole    = errors.New("user found but is not a customer")
	ErrCustomerAssigned   = errors.New("customer is already assigned to a trainer")
	ErrCustomerNotManaged = errors.New("customer is not managed by this trainer")
)
