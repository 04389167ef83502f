package provision

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/openisp/naps/internal/models"
	"github.com/openisp/naps/internal/naperr"
	"github.com/openisp/naps/internal/olt"
	"github.com/openisp/naps/internal/onu"
	"github.com/openisp/naps/internal/raddb"
	"github.com/openisp/naps/internal/radius"
	"github.com/openisp/naps/internal/security"
)

// CommandRunner is the slice of an OLT session an intent drives. Tests
// substitute a scripted runner; production hands out *olt.Session.
type CommandRunner interface {
	Run(ctx context.Context, commands []string) ([]olt.CommandResult, error)
	Close() error
}

// DialFunc opens a fresh device session. Every intent, including a
// compensation, gets its own.
type DialFunc func(ctx context.Context, device *models.Olt) (CommandRunner, error)

// Orchestrator translates intents into ordered calls on the RADIUS schema
// mapper, the wire codec and the OLT driver. It holds no mutable state;
// concurrent intents are independent.
type Orchestrator struct {
	DB          *raddb.Mapper
	Wire        *radius.Client
	DialOLT     DialFunc
	CompanyCode string
	Defaults    raddb.PlanDefaults
}

// Report is the per-intent outcome summary handed back to the caller.
type Report struct {
	IntentID      uuid.UUID `json:"intent_id"`
	Intent        string    `json:"intent"`
	Steps         []string  `json:"steps"`
	Compensations []string  `json:"compensations,omitempty"`
}

func newReport(intent string) *Report {
	return &Report{IntentID: uuid.New(), Intent: intent}
}

func (r *Report) step(format string, args ...interface{}) {
	r.Steps = append(r.Steps, fmt.Sprintf(format, args...))
}

func (r *Report) compensation(format string, args ...interface{}) {
	r.Compensations = append(r.Compensations, fmt.Sprintf(format, args...))
}

// CreateCustomer provisions the RADIUS credential and plan membership.
// With an empty password a URL-safe one is generated and returned; it is
// never logged.
func (o *Orchestrator) CreateCustomer(ctx context.Context, username, password, planCode string) (*Report, string, error) {
	report := newReport("create_customer")

	username = raddb.SanitizeUsername(username)
	if username == "" {
		return report, "", naperr.New(naperr.InvalidInput, "empty username")
	}
	if password == "" {
		generated, err := security.GeneratePassword(security.MinPasswordLength)
		if err != nil {
			return report, "", fmt.Errorf("generate password: %w", err)
		}
		password = generated
		report.step("generated password for %s", username)
	}

	group := raddb.GroupName(o.CompanyCode, planCode)
	if err := o.DB.SetUser(username, password, group); err != nil {
		return report, "", err
	}
	report.step("radcheck + radusergroup written for %s (group %s)", username, group)

	if err := o.DB.SetUserReply(username, nil); err != nil {
		return report, "", err
	}
	report.step("per-user reply overrides cleared")
	return report, password, nil
}

// SyncPlan renders the plan's attribute set with schema defaults injected
// and replaces the radgroupreply rows.
func (o *Orchestrator) SyncPlan(ctx context.Context, plan raddb.Plan) (*Report, error) {
	report := newReport("sync_plan")

	group := raddb.GroupName(o.CompanyCode, plan.Code)
	attrs := raddb.BuildPlanAttrs(plan, o.Defaults)
	if err := o.DB.UpsertPlan(group, attrs); err != nil {
		return report, err
	}
	report.step("radgroupreply synced for %s (%d attributes)", group, len(attrs))
	return report, nil
}

// Suspend parks the customer in the company's suspension group.
func (o *Orchestrator) Suspend(ctx context.Context, username string) (*Report, error) {
	report := newReport("suspend")
	if err := o.DB.Suspend(username, o.CompanyCode); err != nil {
		return report, err
	}
	report.step("%s moved to %s", username, raddb.SuspendedGroupName(o.CompanyCode))
	return report, nil
}

// Reactivate moves the customer back to their plan group.
func (o *Orchestrator) Reactivate(ctx context.Context, username, planCode string) (*Report, error) {
	report := newReport("reactivate")
	group := raddb.GroupName(o.CompanyCode, planCode)
	if err := o.DB.Reactivate(username, group); err != nil {
		return report, err
	}
	report.step("%s moved back to %s", username, group)
	return report, nil
}

// RemoveCustomer deletes the credential rows. Accounting history stays.
func (o *Orchestrator) RemoveCustomer(ctx context.Context, username string) (*Report, error) {
	report := newReport("remove_customer")
	if err := o.DB.RemoveUser(username); err != nil {
		return report, err
	}
	report.step("radcheck, radreply and radusergroup rows removed for %s", username)
	return report, nil
}

// ProvisionONU registers and configures an ONU. The Telnet leg runs first:
// the DB side is idempotent and can be re-driven, a half-configured ONU
// cannot. On any command failure past registration a compensating
// deregistration runs in a fresh session before the error is surfaced.
func (o *Orchestrator) ProvisionONU(ctx context.Context, device *models.Olt, req onu.Request,
	updateDescriptor func(descriptor string) error) (*Report, error) {
	report := newReport("provision_onu")

	allowed, err := onu.ParseAllowedVLANs(device.VlanInternet, device.VlanTV, device.VlanVoice)
	if err != nil {
		return report, err
	}
	if err := req.Validate(allowed); err != nil {
		return report, err
	}
	report.step("request validated for %s slot %d", req.Path, req.Slot)

	dialect := olt.DialectFor(device.Manufacturer, device.Model)
	if dialect.IsHuawei() {
		return report, naperr.New(naperr.ConfigMissing,
			"ONU registration commands are not rendered for the Huawei CLI; provision on %s manually", device.IP)
	}
	commands := onu.BuildCommands(dialect, req)
	report.step("%d commands composed for the %s dialect", len(commands), dialect.Vendor())

	runner, err := o.DialOLT(ctx, device)
	if err != nil {
		return report, err
	}
	results, runErr := runner.Run(ctx, commands)
	runner.Close()

	if runErr == nil {
		report.step("%d commands committed on %s", len(results), device.IP)
		descriptor := onu.FormatDescriptor(device.IP, req.Path, req.Slot, req.VlanInternet)
		if updateDescriptor != nil {
			if err := updateDescriptor(descriptor); err != nil {
				// The OLT is configured; a failed record update is partial
				// state the operator has to reconcile, not roll back.
				return report, naperr.Wrap(naperr.PartialState, err,
					"ONU configured on %s but the customer record update failed; descriptor %q must be stored manually",
					device.IP, descriptor)
			}
		}
		report.step("customer descriptor set to %s", descriptor)
		return report, nil
	}

	if registrationCommitted(results) {
		report.compensation("deregistering ONU %s slot %d after failed configure", req.Path, req.Slot)
		if rbErr := o.rollbackONU(device, dialect, req.Path, req.Slot); rbErr != nil {
			return report, naperr.Wrap(naperr.PartialState, runErr,
				"manual cleanup required: ONU at interface %s slot %d is partially configured and deregistration failed (%v)",
				dialect.OltInterface(req.Path), req.Slot, rbErr)
		}
		report.compensation("no onu %d committed on %s", req.Slot, dialect.OltInterface(req.Path))
	}
	return report, runErr
}

// registrationCommitted reports whether the `onu <slot> type … sn …`
// command (always index 2) may have executed: either a classified success,
// or a write whose response was never read because the intent was cancelled
// mid-command. Unknown registration state is compensated like success.
func registrationCommitted(results []olt.CommandResult) bool {
	for _, r := range results {
		if r.Index == 2 {
			return r.OK || r.Indeterminate
		}
	}
	return false
}

// rollbackONU runs the compensating sequence in a fresh session with its
// own deadline, so it also fires when the intent's context is already
// cancelled.
func (o *Orchestrator) rollbackONU(device *models.Olt, dialect olt.Dialect, path string, slot int) error {
	commands, err := onu.RollbackCommands(dialect, path, slot)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	runner, err := o.DialOLT(ctx, device)
	if err != nil {
		return err
	}
	defer runner.Close()

	if _, err := runner.Run(ctx, commands); err != nil {
		return err
	}
	log.Printf("Compensated failed provisioning: removed ONU %s slot %d on %s", path, slot, device.IP)
	return nil
}

// DeleteONU deregisters a provisioned ONU located by its stored descriptor
// and clears the customer's ONU fields through the callback.
func (o *Orchestrator) DeleteONU(ctx context.Context, device *models.Olt, descriptor string,
	clearFields func() error) (*Report, error) {
	report := newReport("delete_onu")

	desc, err := onu.ParseDescriptor(descriptor)
	if err != nil {
		return report, err
	}
	dialect := olt.DialectFor(device.Manufacturer, device.Model)
	commands, err := onu.DeleteCommands(dialect, desc.Path, desc.Slot)
	if err != nil {
		return report, err
	}

	runner, err := o.DialOLT(ctx, device)
	if err != nil {
		return report, err
	}
	defer runner.Close()

	if _, err := runner.Run(ctx, commands); err != nil {
		return report, err
	}
	report.step("ONU %s slot %d removed from %s", desc.Path, desc.Slot, device.IP)

	if clearFields != nil {
		if err := clearFields(); err != nil {
			return report, naperr.Wrap(naperr.PartialState, err,
				"ONU removed from %s but clearing the customer record failed", device.IP)
		}
	}
	report.step("customer ONU fields cleared")
	return report, nil
}

// ListUnregistered runs the vendor-correct discovery command and parses the
// listing.
func (o *Orchestrator) ListUnregistered(ctx context.Context, device *models.Olt, tech olt.Tech) ([]onu.UncfgRow, error) {
	dialect := olt.DialectFor(device.Manufacturer, device.Model)

	runner, err := o.DialOLT(ctx, device)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	results, err := runner.Run(ctx, []string{dialect.UncfgCommand(tech)})
	if err != nil {
		return nil, err
	}
	return onu.ParseUncfg(results[0].Output)
}

// ShowMac locates a MAC on the device and derives the PPPoE login port.
func (o *Orchestrator) ShowMac(ctx context.Context, device *models.Olt, mac string) (onu.MACLocation, error) {
	normalized, err := onu.NormalizeMAC(mac)
	if err != nil {
		return onu.MACLocation{}, err
	}

	runner, err := o.DialOLT(ctx, device)
	if err != nil {
		return onu.MACLocation{}, err
	}
	defer runner.Close()

	results, err := runner.Run(ctx, []string{"show mac " + normalized})
	if err != nil {
		return onu.MACLocation{}, err
	}
	return onu.ParseMACLocation(device.IP, results[0].Output), nil
}

// TestCredentials exercises the subscriber's credential against the live
// RADIUS server over PAP, recording a trace row either way.
func (o *Orchestrator) TestCredentials(ctx context.Context, username, password string) (*radius.Result, error) {
	result, err := o.Wire.AccessRequestPAP(ctx, username, password, nil)
	if err != nil {
		return nil, err
	}
	o.DB.LogPostAuth(username, "", result.Code)
	return result, nil
}
