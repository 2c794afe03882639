package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/tenant-assistant/internal/directory"
	"github.com/propsignal/tenant-assistant/internal/model"
)

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	dir := directory.New([]string{"+15550100", "+15550101"})

	_, err := dir.RegisterTenant(context.Background(), &model.RegisterTenantRequest{
		Name:  "Dana Smith",
		Phone: "+15551000",
		Unit:  "4B",
	})
	require.NoError(t, err)

	_, err = dir.RegisterContractor(context.Background(), &model.RegisterContractorRequest{
		Name:  "Lee Park",
		Phone: "+15552000",
		Trade: "plumbing",
	})
	require.NoError(t, err)

	return dir
}

func TestClassifySender(t *testing.T) {
	dir := testDirectory(t)

	cases := []struct {
		name         string
		msg          model.InboundMessage
		wantRole     SenderRole
		wantIdentity string
	}{
		{
			name:         "ai tagged self echo",
			msg:          model.InboundMessage{From: "+15550100", SelfEcho: true, AITagged: true},
			wantRole:     RoleSelfEcho,
			wantIdentity: "+15550100",
		},
		{
			name:         "landlord self test from own number",
			msg:          model.InboundMessage{From: "+15550100", SelfEcho: true},
			wantRole:     RoleLandlord,
			wantIdentity: "+15550100",
		},
		{
			name:         "self echo in group stays ignored",
			msg:          model.InboundMessage{From: "+15550100", SelfEcho: true, Group: true, Participant: "+15550100"},
			wantRole:     RoleSelfEcho,
			wantIdentity: "+15550100",
		},
		{
			name:         "landlord direct message",
			msg:          model.InboundMessage{From: "+15550101"},
			wantRole:     RoleLandlord,
			wantIdentity: "+15550101",
		},
		{
			name:     "group without participant",
			msg:      model.InboundMessage{From: "group-chat-7", Group: true},
			wantRole: RoleGroupNoParticipant,
		},
		{
			name:         "registered tenant",
			msg:          model.InboundMessage{From: "+15551000"},
			wantRole:     RoleTenant,
			wantIdentity: "+15551000",
		},
		{
			name:         "tenant via group participant",
			msg:          model.InboundMessage{From: "group-chat-7", Group: true, Participant: "+15551000"},
			wantRole:     RoleTenant,
			wantIdentity: "+15551000",
		},
		{
			name:         "landlord speaking inside a group is not the landlord path",
			msg:          model.InboundMessage{From: "group-chat-7", Group: true, Participant: "+15550100"},
			wantRole:     RoleUnknown,
			wantIdentity: "+15550100",
		},
		{
			name:         "registered contractor",
			msg:          model.InboundMessage{From: "+15552000"},
			wantRole:     RoleContractor,
			wantIdentity: "+15552000",
		},
		{
			name:         "tenant with provider formatting",
			msg:          model.InboundMessage{From: "whatsapp:+15551000@c.us"},
			wantRole:     RoleTenant,
			wantIdentity: "whatsapp:+15551000@c.us",
		},
		{
			name:         "unknown sender",
			msg:          model.InboundMessage{From: "+19998887777"},
			wantRole:     RoleUnknown,
			wantIdentity: "+19998887777",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			role, identity := ClassifySender(&tc.msg, dir)
			assert.Equal(t, tc.wantRole, role)
			assert.Equal(t, tc.wantIdentity, identity)
		})
	}
}

func TestIsDraftRequest(t *testing.T) {
	assert.True(t, isDraftRequest("Draft a reply for her please"))
	assert.True(t, isDraftRequest("what should I say here?"))
	assert.False(t, isDraftRequest("did the plumber show up?"))
}

func TestIsApproval(t *testing.T) {
	assert.True(t, isApproval("Looks good, send it"))
	assert.True(t, isApproval("approved"))
	assert.False(t, isApproval("hold off for now"))
}
