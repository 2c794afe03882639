package router

import (
	"github.com/propsignal/tenant-assistant/internal/directory"
	"github.com/propsignal/tenant-assistant/internal/model"
)

// SenderRole is the routing classification of an inbound message.
type SenderRole string

const (
	RoleSelfEcho           SenderRole = "self_echo"
	RoleLandlord           SenderRole = "landlord"
	RoleGroupNoParticipant SenderRole = "group_no_participant"
	RoleTenant             SenderRole = "tenant"
	RoleContractor         SenderRole = "contractor"
	RoleUnknown            SenderRole = "unknown"
)

// ClassifySender resolves the role of an inbound message's sender. It is a
// pure function over the payload and directory state, checked in priority
// order: self-echo, landlord (direct messages only), group without a
// resolvable participant, registered tenant, registered contractor,
// unknown.
func ClassifySender(msg *model.InboundMessage, dir *directory.Directory) (SenderRole, string) {
	identity := msg.From
	if msg.Group && msg.Participant != "" {
		identity = msg.Participant
	}

	if msg.SelfEcho {
		// Echoes of the system's own AI-tagged messages are always
		// ignored. A landlord texting from the system's own number is a
		// self-test and falls through to the landlord path.
		if !msg.AITagged && !msg.Group && dir.IsLandlord(msg.From) {
			return RoleLandlord, msg.From
		}
		return RoleSelfEcho, identity
	}

	if !msg.Group && dir.IsLandlord(msg.From) {
		return RoleLandlord, msg.From
	}

	if msg.Group && msg.Participant == "" {
		return RoleGroupNoParticipant, ""
	}

	if tenant := dir.FindTenantByPhone(identity); tenant != nil {
		return RoleTenant, identity
	}

	if contractor := dir.FindContractorByPhone(identity); contractor != nil {
		return RoleContractor, identity
	}

	return RoleUnknown, identity
}
