package boot

import (
	"cabin/src/common"
	"cabin/src/db"
	"cabin/src/lib"
	awslib "cabin/src/lib/aws"
	"cabin/src/models"
	"cabin/src/utils"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Credential{},
		&models.Invitation{},
		&models.Reservation{},
		&models.ReservationSwapRequest{},
		&models.Notification{},
		&models.MaintenanceRequest{},
		&models.Album{},
		&models.Photo{},
		&models.JobTask{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitBroker() {
	go RecoverQueuedJobs()
	go UpdateExpiredJobs()
	go lib.KafkaCreateTopics(
		lib.WithSuffix("Emails"),
		lib.WithSuffix("StayReminders"),
	)
	lib.KafkaConsumer("cabin-emails", []string{lib.WithSuffix("Emails")}, common.EmailsHandler)
	go common.SQSConsumers()
	go common.SNSSubscribes()
	go common.BackfillAlbumSlugs()
}

// InitScheduler starts the in-process scheduler and registers the hourly
// expiry sweeps for swaps, invitations and overdue jobs.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	if _, err := lib.CreateCronJob(utils.ExpireOverdueSwaps, time.Hour); err != nil {
		log.Printf("Error registering swap expiry sweep: %s\n", err.Error())
	}
	if _, err := lib.CreateCronJob(utils.ExpireOverdueInvitations, time.Hour); err != nil {
		log.Printf("Error registering invitation expiry sweep: %s\n", err.Error())
	}
	if _, err := lib.CreateCronJob(UpdateExpiredJobs, time.Hour); err != nil {
		log.Printf("Error registering job expiry sweep: %s\n", err.Error())
	}
	jobsWaitingInQueue := len(sched.Jobs())
	log.Println("Jobs in queue:", jobsWaitingInQueue)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while shutting stopping Scheduler. Check logs for info")
		return
	}
}

// RecoverQueuedJobs re-registers pending one-time jobs after a restart, since
// the local scheduler only lives in memory.
func RecoverQueuedJobs() error {
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	db := db.GetDb()
	ss := db.Session(&gorm.Session{PrepareStmt: true})
	var jobTasks []models.JobTask
	today := time.Now()
	in1m := today.Add(1 * time.Minute)
	in3months := today.Add((24 * 30 * 3) * time.Hour)
	err = ss.
		Model(&models.JobTask{}).Select("id", "payload", "runs_at", "name").
		Where(&models.JobTask{Status: "pending", JobType: "OneTimeJobStartDateTime"}).
		Where("runs_at BETWEEN ? AND ?", in1m, in3months).
		Order("runs_at asc").
		Limit(100).
		Find(&jobTasks).
		Error
	if err != nil {
		log.Printf("Error retrieving jobs: %s\n", err.Error())
		return err
	}
	log.Printf("Found %d pending jobs", len(jobTasks))
	for _, jobTask := range jobTasks {
		jobTask := jobTask
		log.Printf("Queueing: %s\n", jobTask.ID.String())
		jobDef := gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(jobTask.RunsAt))
		jt := gocron.NewTask(func() {
			log.Println("Running scheduled task")
			err := lib.KafkaProduceMessage(jobTask.Payload["producerClientId"].(string), jobTask.Payload["topic"].(string), jobTask.Payload)
			if err != nil {
				log.Printf("Error on producing message: %s\n", err.Error())
				return
			}
		})
		job, err := sched.NewJob(
			jobDef,
			jt,
		)
		if err != nil {
			log.Printf("Failed to schedule job [%s]. Skipping: %s\n", jobTask.ID.String(), err.Error())
			continue
		}
		log.Printf("Added job to scheduler: name=%s id=%s job=%s\n", jobTask.Name, jobTask.ID.String(), job.ID().String())
	}

	return nil
}

func UpdateExpiredJobs() {
	db := db.GetDb()
	err := db.
		Transaction(func(tx *gorm.DB) error {
			err := tx.Model(&models.JobTask{}).
				Where("status", "pending").
				Where("runs_at < ?", time.Now()).
				Update("status", "expired").Error
			if err != nil {
				return err
			}
			return nil
		})
	if err != nil {
		log.Printf("Error while processing expired jobs: %s\n", err.Error())
	}
}

// DownloadServiceKeyFromS3 fetches the Firebase admin credentials from the
// secrets bucket when the container starts without them.
func DownloadServiceKeyFromS3() {
	if err := awslib.S3DownloadSecret("admin-sdk-credentials.json"); err != nil {
		log.Printf("[S3] Error retrieving service key: %s\n", err.Error())
	}
}
