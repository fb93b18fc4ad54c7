package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/vairaa/kazi/core/task"
	"github.com/vairaa/kazi/core/user"
	inmemdb "github.com/vairaa/kazi/storage/database/inmem"
	testutil "github.com/vairaa/kazi/tests"
)

type taskDeps struct {
	svc     *task.Service
	repo    task.Repository
	usrRepo user.Repository
}

func setup(t *testing.T) taskDeps {
	t.Helper()
	testutil.Config()

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	repo := inmemdb.NewTaskRepository(db)
	svc := task.NewService(db, repo, usrRepo, testutil.Logger{})
	return taskDeps{svc: svc, repo: repo, usrRepo: usrRepo}
}

func createTask(t *testing.T, d taskDeps, title string) task.Task {
	t.Helper()
	tk, err := d.svc.CreateTask(context.Background(), task.NewTask{
		Title:    title,
		Section:  "MERN",
		DueDate:  "2026-09-15",
		MaxMarks: 10,
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	return tk
}

func assign(t *testing.T, d taskDeps, taskID string, userIDs ...string) {
	t.Helper()
	if _, err := d.svc.Assign(context.Background(), task.Assign{TaskID: taskID, UserIDs: userIDs}); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
}

func TestService_AddMark(t *testing.T) {
	d := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, d.usrRepo, "Jane", "jane@test.cd", user.RoleStudent, "")
	tk1 := createTask(t, d, "Build a REST API")
	tk2 := createTask(t, d, "Write the tests")
	assign(t, d, tk1.ID, usr.ID)
	assign(t, d, tk2.ID, usr.ID)

	total, err := d.svc.AddMark(ctx, task.NewMark{UserID: usr.ID, TaskID: tk1.ID, Mark: 10})
	if err != nil {
		t.Fatalf("AddMark() error = %v", err)
	}
	if total != 10 {
		t.Errorf("total = %d, want 10", total)
	}

	at, err := d.repo.GetAssignment(ctx, usr.ID, tk1.ID)
	if err != nil {
		t.Fatalf("GetAssignment() error = %v", err)
	}
	if at.Mark != 10 || !at.Completed {
		t.Errorf("assignment after grading = %+v", at)
	}

	// second task adds on top
	total, err = d.svc.AddMark(ctx, task.NewMark{UserID: usr.ID, TaskID: tk2.ID, Mark: 5})
	if err != nil {
		t.Fatalf("AddMark() error = %v", err)
	}
	if total != 15 {
		t.Errorf("total = %d, want 15", total)
	}

	// re-grading replaces the old mark instead of double counting
	total, err = d.svc.AddMark(ctx, task.NewMark{UserID: usr.ID, TaskID: tk1.ID, Mark: 7})
	if err != nil {
		t.Fatalf("AddMark() error = %v", err)
	}
	if total != 12 {
		t.Errorf("total after re-grade = %d, want 12 (5 + 7)", total)
	}

	// resubmitting the identical mark leaves the total untouched
	total, err = d.svc.AddMark(ctx, task.NewMark{UserID: usr.ID, TaskID: tk1.ID, Mark: 7})
	if err != nil {
		t.Fatalf("AddMark() error = %v", err)
	}
	if total != 12 {
		t.Errorf("total after identical re-grade = %d, want 12", total)
	}

	// the running total is persisted on the user row
	refreshed, err := d.usrRepo.GetUserByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if refreshed.TotalMark() != 12 {
		t.Errorf("stored total = %d, want 12", refreshed.TotalMark())
	}
}

func TestService_AddMark_unassignedTask(t *testing.T) {
	d := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, d.usrRepo, "Jane", "jane@test.cd", user.RoleStudent, "")
	tk := createTask(t, d, "Build a REST API")

	if _, err := d.svc.AddMark(ctx, task.NewMark{UserID: usr.ID, TaskID: tk.ID, Mark: 10}); err != task.ErrAssignmentNotFound {
		t.Fatalf("AddMark() error = %v, want ErrAssignmentNotFound", err)
	}

	// nothing was written
	refreshed, _ := d.usrRepo.GetUserByID(ctx, usr.ID)
	if refreshed.TotalMark() != 0 {
		t.Errorf("total changed to %d on rejected grade", refreshed.TotalMark())
	}
}

func TestService_AddMark_garbageRemarkReadsAsZero(t *testing.T) {
	d := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, d.usrRepo, "Jane", "jane@test.cd", user.RoleStudent, "")
	if err := d.usrRepo.(task.UserDirectory).SetRemark(ctx, usr.ID, "n/a"); err != nil {
		t.Fatalf("SetRemark() error = %v", err)
	}
	tk := createTask(t, d, "Build a REST API")
	assign(t, d, tk.ID, usr.ID)

	total, err := d.svc.AddMark(ctx, task.NewMark{UserID: usr.ID, TaskID: tk.ID, Mark: 4})
	if err != nil {
		t.Fatalf("AddMark() error = %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
}

func TestService_Assign(t *testing.T) {
	d := setup(t)
	ctx := context.Background()

	jane := testutil.CreateUser(t, d.usrRepo, "Jane", "jane@test.cd", user.RoleStudent, "")
	otis := testutil.CreateUser(t, d.usrRepo, "Otis", "otis@test.cd", user.RoleStudent, "")
	tk := createTask(t, d, "Build a REST API")

	assigned, err := d.svc.Assign(ctx, task.Assign{TaskID: tk.ID, UserIDs: []string{jane.ID}})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if len(assigned) != 1 || assigned[0].UserID != jane.ID {
		t.Errorf("Assign() = %+v", assigned)
	}

	// duplicate (user, task) is rejected
	if _, err := d.svc.Assign(ctx, task.Assign{TaskID: tk.ID, UserIDs: []string{jane.ID}}); err != task.ErrAlreadyAssigned {
		t.Errorf("duplicate Assign() error = %v, want ErrAlreadyAssigned", err)
	}

	// unknown task
	if _, err := d.svc.Assign(ctx, task.Assign{TaskID: "nope", UserIDs: []string{otis.ID}}); err != task.ErrTaskNotFound {
		t.Errorf("Assign() unknown task error = %v, want ErrTaskNotFound", err)
	}
}

func TestService_Assign_all(t *testing.T) {
	d := setup(t)
	ctx := context.Background()

	testutil.CreateUser(t, d.usrRepo, "Jane", "jane@test.cd", user.RoleStudent, "")
	testutil.CreateUser(t, d.usrRepo, "Otis", "otis@test.cd", user.RoleStudent, "")
	testutil.CreateUser(t, d.usrRepo, "Boss", "boss@test.cd", user.RoleAdmin, "")
	tk := createTask(t, d, "Build a REST API")

	assigned, err := d.svc.Assign(ctx, task.Assign{TaskID: tk.ID, All: true})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if len(assigned) != 3 {
		t.Errorf("Assign(all) fanned out to %d users, want 3", len(assigned))
	}
}

func TestService_Dashboard(t *testing.T) {
	d := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, d.usrRepo, "Jane", "jane@test.cd", user.RoleStudent, "")
	tk1 := createTask(t, d, "Build a REST API")
	tk2 := createTask(t, d, "Write the tests")
	tk3 := createTask(t, d, "Deploy it")
	assign(t, d, tk1.ID, usr.ID)
	assign(t, d, tk2.ID, usr.ID)
	assign(t, d, tk3.ID, usr.ID)

	if _, err := d.svc.AddMark(ctx, task.NewMark{UserID: usr.ID, TaskID: tk1.ID, Mark: 8}); err != nil {
		t.Fatalf("AddMark() error = %v", err)
	}

	dash, err := d.svc.Dashboard(ctx, usr)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if dash.Records.TotalTasks != 3 || dash.Records.TotalCompletedTask != 1 || dash.Records.TotalPendingTask != 2 {
		t.Errorf("Dashboard() records = %+v", dash.Records)
	}
	for _, at := range dash.AssignedTasks {
		if at.Task == nil {
			t.Errorf("Dashboard() assignment %s missing joined task", at.ID)
		}
	}
}

func TestService_PendingAssignees(t *testing.T) {
	d := setup(t)
	ctx := context.Background()

	jane := testutil.CreateUser(t, d.usrRepo, "Jane", "jane@test.cd", user.RoleStudent, "")
	otis := testutil.CreateUser(t, d.usrRepo, "Otis", "otis@test.cd", user.RoleStudent, "")
	tk := createTask(t, d, "Build a REST API")
	assign(t, d, tk.ID, jane.ID, otis.ID)

	if _, err := d.svc.AddMark(ctx, task.NewMark{UserID: jane.ID, TaskID: tk.ID, Mark: 9}); err != nil {
		t.Fatalf("AddMark() error = %v", err)
	}

	res, err := d.svc.PendingAssignees(ctx, tk.ID)
	if err != nil {
		t.Fatalf("PendingAssignees() error = %v", err)
	}
	if res.Stats.TotalUsers != 1 || len(res.Users) != 1 || res.Users[0].ID != otis.ID {
		t.Errorf("PendingAssignees() = %+v", res)
	}
}

func TestService_CreateTopic(t *testing.T) {
	d := setup(t)
	ctx := context.Background()

	topic, err := d.svc.CreateTopic(ctx, task.NewTopic{
		Title: "Express Routing", Section: "MERN", TopicDate: "2026-09-01", Duration: 90, Status: "active",
	})
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	want, _ := time.Parse("2006-01-02", "2026-09-01")
	if !topic.TopicDate.Equal(want) {
		t.Errorf("TopicDate = %v, want %v", topic.TopicDate, want)
	}

	if _, err := d.svc.CreateTopic(ctx, task.NewTopic{
		Title: "Bad Date", Section: "MERN", TopicDate: "01/09/2026", Duration: 90,
	}); err == nil {
		t.Error("CreateTopic() accepted an unparseable date")
	}

	// notes attachment
	withNotes, err := d.svc.AttachNotes(ctx, topic.ID, "https://docs.test/express.pdf")
	if err != nil {
		t.Fatalf("AttachNotes() error = %v", err)
	}
	if withNotes.NotesLink.String != "https://docs.test/express.pdf" {
		t.Errorf("NotesLink = %+v", withNotes.NotesLink)
	}
	if _, err := d.svc.AttachNotes(ctx, topic.ID, "   "); err == nil {
		t.Error("AttachNotes() accepted a blank link")
	}
}
