package methods

import (
	"context"

	"github.com/nextlevelbuilder/mcpgate/internal/drive"
	"github.com/nextlevelbuilder/mcpgate/internal/gateway"
	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

// DriveStatuser reports storage connection state without connecting.
type DriveStatuser interface {
	Status() drive.Status
}

// DriveMethods handles drive.status.
type DriveMethods struct {
	drive DriveStatuser
}

func NewDriveMethods(d DriveStatuser) *DriveMethods {
	return &DriveMethods{drive: d}
}

func (m *DriveMethods) Register(router *gateway.MethodRouter) {
	router.Register(protocol.MethodDriveStatus, m.handleStatus)
}

func (m *DriveMethods) handleStatus(_ context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	client.SendResponse(protocol.NewOKResponse(req.ID, m.drive.Status()))
}
